package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// render writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) render(w io.Writer, v any, text func(io.Writer)) error {
	if a.flags.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func printMembers(out io.Writer, members []*types.Member) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tBORN\tGROUPS")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			m.MemberID, m.Username, m.Email, m.BirthDate.Format(time.DateOnly), len(m.GroupIDs))
	}
	w.Flush()
}

func printGroups(out io.Writer, groups []*types.Group) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFOUNDED\tMEMBERS")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", g.GroupID, g.Name, g.FoundedOn, len(g.MemberIDs))
	}
	w.Flush()
}
