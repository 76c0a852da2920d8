package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jclass-go/jclass/pkg/bytecode"
	"github.com/jclass-go/jclass/pkg/classfile"
	"github.com/jclass-go/jclass/pkg/code"
	"github.com/jclass-go/jclass/pkg/cpool"
	"github.com/jclass-go/jclass/pkg/stackmap"
)

var pretty bool

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <classfile>",
		Short: "Parse a .class file and print its fields, methods and bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args[0])
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the output with lipgloss instead of plain columns")
	return cmd
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	memberStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	insnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runDump(cmd *cobra.Command, path string) error {
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (version %d.%d)\n", style(headingStyle, "class"), cf.ThisClass, cf.MajorVersion, cf.MinorVersion)
	if cf.SuperClass != "" {
		fmt.Fprintf(out, "  extends %s\n", cf.SuperClass)
	}
	for _, iface := range cf.Interfaces {
		fmt.Fprintf(out, "  implements %s\n", iface)
	}

	if len(cf.Fields) > 0 {
		fmt.Fprintln(out, style(headingStyle, "fields:"))
		for _, f := range cf.Fields {
			fmt.Fprintf(out, "  %s %s\n", style(memberStyle, f.Name), f.Descriptor)
		}
	}

	if len(cf.Methods) > 0 {
		fmt.Fprintln(out, style(headingStyle, "methods:"))
		for _, m := range cf.Methods {
			fmt.Fprintf(out, "  %s %s\n", style(memberStyle, m.Name), m.Descriptor)
			if m.Code == nil {
				continue
			}
			fmt.Fprintf(out, "    max_stack=%d max_locals=%d exceptions=%d\n",
				m.Code.MaxStack, m.Code.MaxLocals, len(m.Code.Exceptions))
			if verbose {
				dumpInsns(out, m.Code)
				if err := dumpStackMapTable(out, m.Code); err != nil {
					return fmt.Errorf("decoding StackMapTable for %s: %w", m.Name, err)
				}
			}
		}
	}
	return nil
}

func style(s lipgloss.Style, text string) string {
	if pretty {
		return s.Render(text)
	}
	return text
}

// dumpInsns prints one line per decoded instruction. This is a debugging
// aid, not a javap-compatible disassembly: label instructions print their
// id, branch/switch instructions print their label targets rather than
// resolved byte offsets, matching how the codec represents them in memory.
func dumpInsns(out io.Writer, attr *code.Attribute) {
	for _, insn := range attr.Insns.All() {
		line := fmt.Sprintf("      %-18s %s", insnKindName(insn), insnDetail(insn))
		fmt.Fprintln(out, style(insnStyle, line))
	}
}

// dumpStackMapTable decodes and prints the Code attribute's StackMapTable,
// if it carries one. The table is kept as a raw nested attribute on
// code.Attribute (this codec's scope stops at the Code attribute's own
// structure), so a consumer that wants the frames decodes them itself.
func dumpStackMapTable(out io.Writer, attr *code.Attribute) error {
	raw, ok := cpool.Find(attr.Attributes, "StackMapTable")
	if !ok {
		return nil
	}
	table, err := stackmap.Parse(raw.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "      StackMapTable: %d frame(s)\n", len(table.Frames))
	for i, frame := range table.Frames {
		fmt.Fprintf(out, "        [%d] %s\n", i, frameKindName(frame))
	}
	return nil
}

func frameKindName(f stackmap.Frame) string {
	name := fmt.Sprintf("%T", f)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func insnKindName(insn bytecode.Insn) string {
	name := fmt.Sprintf("%T", insn)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func insnDetail(insn bytecode.Insn) string {
	switch v := insn.(type) {
	case bytecode.LabelInsn:
		return fmt.Sprintf("L%d", v.ID)
	case bytecode.Jump:
		return fmt.Sprintf("-> L%d", v.Target)
	case bytecode.ConditionalJump:
		return fmt.Sprintf("-> L%d", v.Target)
	default:
		return fmt.Sprintf("%+v", v)
	}
}
