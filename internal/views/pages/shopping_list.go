package pages

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"mealplanner/internal/mealplan"
	"mealplanner/internal/views/layout"
)

// FormatQuantity renders a quantity without trailing zeros followed by its unit.
func FormatQuantity(value float64, unit string) string {
	return strings.TrimSpace(strconv.FormatFloat(value, 'f', -1, 64) + " " + unit)
}

// ShoppingListTitle names the page for a range.
func ShoppingListTitle(r mealplan.DateRange) string {
	if r.Start == r.End {
		return fmt.Sprintf("Shopping list for %s", r.Start)
	}
	return fmt.Sprintf("Shopping list %s to %s", r.Start, r.End)
}

// ShoppingList renders the aggregated list as a printable page.
func ShoppingList(list mealplan.ShoppingList) templ.Component {
	title := ShoppingListTitle(list.Range)
	return layout.Base(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<h1>")
		b.WriteString(templ.EscapeString(title))
		b.WriteString("</h1>")

		if len(list.Items) == 0 {
			b.WriteString(`<p class="empty">Nothing planned in this range.</p>`)
			_, err := io.WriteString(w, b.String())
			return err
		}

		b.WriteString(`<table><thead><tr><th>Ingredient</th><th>Quantity</th><th>Dishes</th></tr></thead><tbody>`)
		for _, item := range list.Items {
			b.WriteString("<tr><td>")
			b.WriteString(templ.EscapeString(item.Name))
			b.WriteString(`</td><td class="qty">`)
			b.WriteString(templ.EscapeString(FormatQuantity(item.Qty, item.Unit)))
			b.WriteString("</td><td>")
			b.WriteString(templ.EscapeString(strings.Join(item.Dishes, ", ")))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table>")

		_, err := io.WriteString(w, b.String())
		return err
	}))
}
