package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrinter(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer) (int, error)
		want  string
	}{
		{
			name:  "info",
			print: func(p *Printer) (int, error) { return p.Info("ℹ️", "uploaded %s", "a.txt") },
			want:  "  ℹ️ uploaded a.txt\n",
		},
		{
			name:  "warn",
			print: func(p *Printer) (int, error) { return p.Warn("⚠️", "skipped %d items", 2) },
			want:  "  ⚠️ skipped 2 items\n",
		},
		{
			name:  "success without emoji",
			print: func(p *Printer) (int, error) { return p.Success("", "done") },
			want:  "  done\n",
		},
		{
			name:  "error",
			print: func(p *Printer) (int, error) { return p.Error("❌", "failed: %v", "boom") },
			want:  "  ❌ failed: boom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := require.New(t)

			// a buffer is not a terminal, so nothing is colored
			buf := new(bytes.Buffer)
			n, err := tt.print(NewPrinter(buf))
			assert.NoError(err)
			assert.Contains(buf.String(), tt.want)
			assert.Equal(buf.Len(), n)
		})
	}
}

func TestPrinterTable(t *testing.T) {
	assert := require.New(t)

	p := NewPrinter(new(bytes.Buffer))

	out := p.Table([]string{"Name", "Size"}, [][]string{
		{"dir/a.txt", "3 B"},
		{"dir/b.txt", "4 B"},
	})

	assert.Contains(out, "Name")
	assert.Contains(out, "dir/a.txt")
	assert.Contains(out, "4 B")
}

func TestPrinterSummary(t *testing.T) {
	assert := require.New(t)

	buf := new(bytes.Buffer)
	_, err := NewPrinter(buf).Summary("📊", "Upload summary", [][]string{{"Container", "mycontainer"}})
	assert.NoError(err)
	assert.Contains(buf.String(), "📊 Upload summary:")
	assert.Contains(buf.String(), "mycontainer")
}
