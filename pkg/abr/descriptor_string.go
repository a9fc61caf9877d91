package abr

import (
	"fmt"
	"strings"
)

// Dump renders the descriptor tree in an indented human-readable form, used
// by brushctl analyze.
func (v Value) Dump() string {
	var b strings.Builder
	v.dump(&b, "", "")
	return b.String()
}

func (v Value) dump(b *strings.Builder, key, indent string) {
	prefix := indent
	if key != "" {
		prefix = fmt.Sprintf("%s%s: ", indent, key)
	}

	switch v.Kind {
	case KindObject:
		header := v.Class
		if v.Name != "" {
			header += " " + fmt.Sprintf("%q", v.Name)
		}
		if v.Truncated {
			header += " (truncated)"
		}
		fmt.Fprintf(b, "%s%s {\n", prefix, header)
		for _, kv := range v.Keys {
			kv.Value.dump(b, kv.Key, indent+"  ")
		}
		fmt.Fprintf(b, "%s}\n", indent)
	case KindList:
		fmt.Fprintf(b, "%s[%d items]\n", prefix, len(v.Items))
		for _, item := range v.Items {
			item.dump(b, "", indent+"  ")
		}
	case KindDouble:
		fmt.Fprintf(b, "%s%g\n", prefix, v.Number)
	case KindUnitDouble:
		fmt.Fprintf(b, "%s%g %s\n", prefix, v.Number, v.Unit)
	case KindInteger:
		fmt.Fprintf(b, "%s%d\n", prefix, int(v.Number))
	case KindBool:
		fmt.Fprintf(b, "%s%t\n", prefix, v.Bool)
	case KindText:
		fmt.Fprintf(b, "%s%q\n", prefix, v.Text)
	case KindEnum:
		fmt.Fprintf(b, "%s%s\n", prefix, v.Enum)
	case KindRaw:
		fmt.Fprintf(b, "%sbinary (%d bytes)\n", prefix, int(v.Number))
	case KindClass:
		fmt.Fprintf(b, "%sclass %s\n", prefix, v.Class)
	case KindAlias:
		fmt.Fprintf(b, "%salias\n", prefix)
	case KindPath:
		fmt.Fprintf(b, "%spath data\n", prefix)
	case KindReference:
		fmt.Fprintf(b, "%sreference\n", prefix)
	default:
		fmt.Fprintf(b, "%s<invalid>\n", prefix)
	}
}
