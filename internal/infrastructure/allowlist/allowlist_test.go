package allowlist_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shirtdrop/internal/infrastructure/allowlist"
)

const shirtID = "5b0c3f5e-7c43-4c1e-9d43-2a7f4f3b9b11"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{
			name: "valid",
			input: `
shirts:
  - shirt_id: ` + shirtID + `
    object_id: "0xA1"
    name: Pilot
    size: M
    extra:
      print: front
`,
			wantLen: 1,
		},
		{name: "empty document", input: "", wantLen: 0},
		{
			name:    "bad object id",
			input:   "shirts:\n  - shirt_id: " + shirtID + "\n    object_id: nothex\n",
			wantErr: "object_id",
		},
		{
			name:    "bad shirt id",
			input:   "shirts:\n  - shirt_id: nope\n    object_id: '0x1'\n",
			wantErr: "shirt_id",
		},
		{
			name: "duplicate",
			input: "shirts:\n  - shirt_id: " + shirtID + "\n    object_id: '0x1'\n" +
				"  - shirt_id: " + shirtID + "\n    object_id: '0x2'\n",
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)

			list, err := allowlist.Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				rq.ErrorContains(err, tt.wantErr)
				return
			}

			rq.NoError(err)
			rq.Equal(tt.wantLen, list.Len())
		})
	}
}

func TestLookup(t *testing.T) {
	rq := require.New(t)

	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	rq.NoError(os.WriteFile(path, []byte("shirts:\n  - shirt_id: "+shirtID+"\n    object_id: '0xA1'\n    color: black\n"), 0o600))

	list, err := allowlist.Load(path)
	rq.NoError(err)

	entry, ok := list.Lookup(uuid.MustParse(shirtID))
	rq.True(ok)
	rq.Equal("0x00000000000000000000000000000000000000000000000000000000000000a1", entry.ObjectID.String())
	rq.Equal("black", entry.Attrs.Color)

	_, ok = list.Lookup(uuid.New())
	rq.False(ok)

	missing, err := allowlist.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	rq.NoError(err)
	rq.Zero(missing.Len())
}
