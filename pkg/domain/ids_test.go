package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "civicdesk/pkg/domain-errors"
)

// parsers covers every exported ID kind so parsing rules stay uniform.
var parsers = map[string]func(string) error{
	"user":         func(s string) error { _, err := ParseUserID(s); return err },
	"notification": func(s string) error { _, err := ParseNotificationID(s); return err },
	"audit entry":  func(s string) error { _, err := ParseAuditEntryID(s); return err },
	"complaint":    func(s string) error { _, err := ParseComplaintID(s); return err },
	"resource":     func(s string) error { _, err := ParseResourceID(s); return err },
}

func TestParse_RejectsAtTheBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "id is required"},
		{"whitespace", "   ", "id is required"},
		{"nil uuid", uuid.Nil.String(), "id must not be nil"},
		{"not a uuid", "complaint-42", "invalid"},
		{"sql fragment", "'; DROP TABLE complaints;--", "invalid"},
		{"path segment", "../../../etc/passwd", "invalid"},
		{"embedded null byte", "550e8400\x00-e29b-41d4-a716-446655440000", "invalid"},
		{"zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", "invalid"},
		{"oversized", strings.Repeat("f", 512), "invalid"},
	}

	for kind, parse := range parsers {
		for _, tt := range tests {
			t.Run(kind+"/"+tt.name, func(t *testing.T) {
				err := parse(tt.input)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				assert.Contains(t, err.Error(), kind)
				assert.Contains(t, err.Error(), tt.wantMsg)
			})
		}
	}
}

func TestParse_AcceptsCanonicalAndUppercase(t *testing.T) {
	raw := "550E8400-E29B-41D4-A716-446655440000"
	for kind, parse := range parsers {
		assert.NoError(t, parse(raw), kind)
		assert.NoError(t, parse(strings.ToLower(raw)), kind)
	}

	id, err := ParseComplaintID(raw)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(raw), id.String())
}

func TestNew_ProducesDistinctNonNilIDs(t *testing.T) {
	a, b := NewNotificationID(), NewNotificationID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
	assert.True(t, NotificationID{}.IsNil())
}

func TestID_SQLRoundTrip(t *testing.T) {
	id := NewComplaintID()
	v, err := id.Value()
	require.NoError(t, err)

	var scanned ComplaintID
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, id, scanned)

	t.Run("nil id is stored as NULL", func(t *testing.T) {
		v, err := ComplaintID{}.Value()
		require.NoError(t, err)
		assert.Nil(t, v)

		require.NoError(t, scanned.Scan(nil))
		assert.True(t, scanned.IsNil())
	})

	t.Run("scans raw bytes from the driver", func(t *testing.T) {
		var out ResourceID
		want := NewResourceID()
		require.NoError(t, out.Scan([]byte(want.String())))
		assert.Equal(t, want, out)
	})
}

func TestID_JSONUsesTextForm(t *testing.T) {
	type payload struct {
		AssignedTo UserID `json:"assigned_to"`
	}
	in := payload{AssignedTo: NewUserID()}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"assigned_to":"`+in.AssignedTo.String()+`"}`, string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"assigned_to":"nope"}`), &out))
}
