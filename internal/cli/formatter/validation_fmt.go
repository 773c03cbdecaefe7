package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/stageflow/internal/service"
)

// FormatValidation renders the verdict, errors, warnings and suggestions of
// a stage validation.
func FormatValidation(r *service.ValidationResult) string {
	var b strings.Builder
	if r.IsValid {
		b.WriteString(StyleGreen.Render("✔ valid"))
	} else {
		b.WriteString(StyleRed.Render("✖ invalid"))
	}
	fmt.Fprintf(&b, " %s\n", Dim("(current status "+string(r.CurrentStatus)+")"))

	for _, e := range r.Errors {
		tag := ""
		if e.Overridable {
			tag = Dim(" [overridable]")
		}
		fmt.Fprintf(&b, "  %s %s%s\n", StyleRed.Render(string(e.Code)), e.Message, tag)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  %s %s\n", StyleYellow.Render(string(w.Code)), w.Message)
	}
	if len(r.MissingPredecessors) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", Dim("missing predecessors:"), Codes(r.MissingPredecessors))
	}
	if r.SuggestedAutoStart != nil {
		fmt.Fprintf(&b, "  %s %s\n", Dim("suggested start:"), Date(r.SuggestedAutoStart))
	}
	return b.String()
}
