package dashboard

import (
	"bytes"
	"context"

	"github.com/alfredjeanlab/flowview/internal/panel"
	flowsync "github.com/alfredjeanlab/flowview/internal/sync"
)

// ExportFunc snapshots the open task panel's graph as JSONL. It may be
// called from any goroutine other than the loop.
func (d *Dashboard) ExportFunc() flowsync.ExportFunc {
	return func(ctx context.Context, buf *bytes.Buffer) (string, error) {
		var (
			out  bytes.Buffer
			name string
			err  error
		)
		if callErr := d.loop.Call(ctx, func() {
			p := d.stack.Task()
			if p == nil {
				err = panel.ErrNoTask
				return
			}
			name = flowsync.ObjectName(p.ID())
			err = flowsync.ExportJSONL(p.ID(), p.Graph(), &out)
		}); callErr != nil {
			return "", callErr
		}
		if err != nil {
			return "", err
		}
		buf.Write(out.Bytes())
		return name, nil
	}
}
