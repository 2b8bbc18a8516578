package layout

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const stylesheet = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}` +
	`table{border-collapse:collapse;width:100%}` +
	`th,td{border-bottom:1px solid #d9e2ec;padding:.4rem .6rem;text-align:left}` +
	`td.qty{text-align:right;font-variant-numeric:tabular-nums}` +
	`@media print{body{margin:0}}`

// Base wraps body in a minimal printable HTML document.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, templ.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</title><style>`+stylesheet+`</style></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
