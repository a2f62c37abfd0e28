package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const brand = "Smart Village Management System"

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; }
    .content { padding: 20px; background-color: #f9f9f9; }
    .status { display: inline-block; padding: 5px 10px; border-radius: 5px; font-weight: bold; }
    .status.pending { background-color: #FEF3C7; color: #92400E; }
    .status.in-progress { background-color: #DBEAFE; color: #1E40AF; }
    .status.resolved { background-color: #D1FAE5; color: #065F46; }
    .status.rejected { background-color: #FEE2E2; color: #991B1B; }
    .footer { padding: 20px; text-align: center; font-size: 12px; color: #666; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>{{.Heading}}</h1></div>
    <div class="content">{{.Body}}</div>
    <div class="footer">
      <p>This is an automated message. Please do not reply to this email.</p>
      <p>&copy; {{.Year}} {{.Brand}}</p>
    </div>
  </div>
</body>
</html>`))

var (
	statusBody = template.Must(template.New("status").Parse(`<h2>Complaint Status Update</h2>
<p>Dear {{.Name}},</p>
<p>Your complaint has been updated:</p>
<p><strong>Complaint ID:</strong> {{.ID}}</p>
<p><strong>Title:</strong> {{.Title}}</p>
<p><strong>Status:</strong> <span class="status {{.Status}}">{{.StatusUpper}}</span></p>
<p><strong>Category:</strong> {{.Category}}</p>
{{if .Assigned}}<p><strong>Assigned To:</strong> Officer</p>{{end}}
{{if .Resolution}}<p><strong>Resolution:</strong></p><p>{{.Resolution}}</p>{{end}}
<p>You can track your complaint status by logging into the Smart Village portal.</p>`))

	welcomeBody = template.Must(template.New("welcome").Parse(`<p>Dear {{.Name}},</p>
<p>Thank you for registering with Smart Village Management System.</p>
<p>Your account has been successfully created with the following details:</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Role:</strong> {{.Role}}</p>
<p>You can now log in and access all the features available for your role.</p>`))

	maintenanceBody = template.Must(template.New("maintenance").Parse(`<h2>Maintenance Schedule Alert</h2>
<p>The following resource requires maintenance tomorrow:</p>
<ul>
  <li><strong>Resource:</strong> {{.Name}}</li>
  <li><strong>Type:</strong> {{.Type}}</li>
  <li><strong>Scheduled:</strong> {{.Scheduled}}</li>
</ul>
<p>Please ensure the maintenance is completed as scheduled.</p>`))

	criticalBody = template.Must(template.New("critical").Parse(`<h2>Critical Resource Alert</h2>
<p>The following resources are operating at over 90% capacity:</p>
<pre>{{.List}}</pre>
<p>Please take immediate action to prevent service disruptions.</p>`))

	monthlyBody = template.Must(template.New("monthly").Parse(`<h2>Monthly Report</h2>
<p>Your monthly village management report is attached.</p>
<p>Report generated for: {{.Period}}</p>`))
)

// ComplaintInfo is what the status templates need to know about a complaint.
type ComplaintInfo struct {
	ID         string
	Title      string
	Status     string
	Category   string
	Assigned   bool
	Resolution string
}

// Recipient is the addressee of a templated email.
type Recipient struct {
	Name  string
	Email string
	Role  string
}

// ResourceLine is one resource in a maintenance or critical alert.
type ResourceLine struct {
	Name        string
	Type        string
	Utilization float64
	Scheduled   time.Time
}

func ComplaintStatusEmail(c ComplaintInfo, to Recipient, now time.Time) (Message, error) {
	data := struct {
		ComplaintInfo
		Name        string
		StatusUpper string
	}{c, to.Name, strings.ToUpper(c.Status)}

	body, err := render(statusBody, data)
	if err != nil {
		return Message{}, err
	}
	html, err := wrap("Smart Village Management", body, now)
	if err != nil {
		return Message{}, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\nYour complaint has been updated:\n\n", to.Name)
	fmt.Fprintf(&text, "Complaint ID: %s\nTitle: %s\nStatus: %s\nCategory: %s\n", c.ID, c.Title, data.StatusUpper, c.Category)
	if c.Resolution != "" {
		fmt.Fprintf(&text, "\nResolution: %s\n", c.Resolution)
	}
	text.WriteString("\nYou can track your complaint status by logging into the Smart Village portal.\n\n")
	text.WriteString("This is an automated message.\n" + brand + "\n")

	return Message{
		To:      []string{to.Email},
		Subject: "Complaint Status Update: " + c.Title,
		Text:    text.String(),
		HTML:    html,
	}, nil
}

func WelcomeEmail(to Recipient, now time.Time) (Message, error) {
	body, err := render(welcomeBody, to)
	if err != nil {
		return Message{}, err
	}
	html, err := wrap("Welcome to Smart Village!", body, now)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to.Email},
		Subject: "Welcome to " + brand,
		HTML:    html,
	}, nil
}

func MaintenanceDueEmail(to string, r ResourceLine, now time.Time) (Message, error) {
	body, err := render(maintenanceBody, map[string]string{
		"Name":      r.Name,
		"Type":      r.Type,
		"Scheduled": r.Scheduled.Format("Jan 2, 2006"),
	})
	if err != nil {
		return Message{}, err
	}
	html, err := wrap("Maintenance Alert", body, now)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: "Maintenance Alert: " + r.Name, HTML: html}, nil
}

// CriticalResourceList renders the plain-text list shared by the email and logs.
func CriticalResourceList(resources []ResourceLine) string {
	lines := make([]string, 0, len(resources))
	for _, r := range resources {
		lines = append(lines, fmt.Sprintf("- %s (%s): %.1f%% utilized", r.Name, r.Type, r.Utilization))
	}
	return strings.Join(lines, "\n")
}

func CriticalResourcesEmail(to string, resources []ResourceLine, now time.Time) (Message, error) {
	list := CriticalResourceList(resources)
	body, err := render(criticalBody, map[string]string{"List": list})
	if err != nil {
		return Message{}, err
	}
	html, err := wrap("Critical Resource Alert", body, now)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "Weekly Critical Resources Report",
		Text:    "The following resources are operating at over 90% capacity:\n" + list + "\n",
		HTML:    html,
	}, nil
}

func MonthlyReportEmail(to, monthLabel, period string, report Attachment, now time.Time) (Message, error) {
	body, err := render(monthlyBody, map[string]string{"Period": period})
	if err != nil {
		return Message{}, err
	}
	html, err := wrap("Monthly Report", body, now)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:          []string{to},
		Subject:     "Monthly Report - " + monthLabel,
		HTML:        html,
		Attachments: []Attachment{report},
	}, nil
}

func render(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

func wrap(heading string, body template.HTML, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, map[string]any{
		"Heading": heading,
		"Body":    body,
		"Year":    now.Year(),
		"Brand":   brand,
	})
	if err != nil {
		return "", fmt.Errorf("render email layout: %w", err)
	}
	return buf.String(), nil
}
