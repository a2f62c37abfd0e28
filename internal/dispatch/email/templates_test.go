package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplaintStatusEmail(t *testing.T) {
	msg, err := ComplaintStatusEmail(ComplaintInfo{
		ID:         "c-1",
		Title:      "Broken <pipe>",
		Status:     "resolved",
		Category:   "water",
		Resolution: "Pipe replaced",
	}, Recipient{Name: "Asha", Email: "asha@village.gov"}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "Complaint Status Update: Broken <pipe>", msg.Subject)
	assert.Equal(t, []string{"asha@village.gov"}, msg.To)
	assert.Contains(t, msg.HTML, "Broken &lt;pipe&gt;")
	assert.Contains(t, msg.HTML, `<span class="status resolved">RESOLVED</span>`)
	assert.Contains(t, msg.HTML, "&copy; 2024")
	assert.Contains(t, msg.Text, "Status: RESOLVED")
	assert.Contains(t, msg.Text, "Resolution: Pipe replaced")
	assert.NotContains(t, msg.HTML, "Assigned To")
}

func TestWelcomeEmail(t *testing.T) {
	msg, err := WelcomeEmail(Recipient{Name: "Ravi", Email: "ravi@village.gov", Role: "officer"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Smart Village Management System", msg.Subject)
	assert.Contains(t, msg.HTML, "<strong>Role:</strong> officer")
}

func TestSchedulerEmails(t *testing.T) {
	due := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	msg, err := MaintenanceDueEmail("admin@village.gov", ResourceLine{Name: "Pump 3", Type: "water", Scheduled: due}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Maintenance Alert: Pump 3", msg.Subject)
	assert.Contains(t, msg.HTML, "Jul 2, 2024")

	lines := []ResourceLine{{Name: "Tank A", Type: "water", Utilization: 95}, {Name: "Grid 2", Type: "electricity", Utilization: 92.25}}
	assert.Equal(t, "- Tank A (water): 95.0% utilized\n- Grid 2 (electricity): 92.2% utilized", CriticalResourceList(lines))

	msg, err = CriticalResourcesEmail("admin@village.gov", lines, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Weekly Critical Resources Report", msg.Subject)
	assert.Contains(t, msg.HTML, "Tank A (water): 95.0% utilized")

	msg, err = MonthlyReportEmail("admin@village.gov", "June 2024", "2024-06-01 - 2024-07-01",
		Attachment{FileName: "r.pdf", Path: "/tmp/r.pdf"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Monthly Report - June 2024", msg.Subject)
	assert.Len(t, msg.Attachments, 1)
}
