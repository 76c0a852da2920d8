package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jclass-go/jclass/pkg/bytecode"
	"github.com/jclass-go/jclass/pkg/classfile"
	"github.com/jclass-go/jclass/pkg/code"
	"github.com/jclass-go/jclass/pkg/cpool"
	"github.com/jclass-go/jclass/pkg/stackmap"
)

func writeSampleClass(t *testing.T) string {
	t.Helper()
	list := bytecode.NewInsnList()
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 1})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})

	cf := &classfile.ClassFile{
		MajorVersion: 61,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    "com/example/Widget",
		SuperClass:   "java/lang/Object",
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic,
				Name:        "run",
				Descriptor:  "()I",
				Code:        &code.Attribute{MaxStack: 1, MaxLocals: 1, Insns: list},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "Widget.class")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, classfile.Write(cf, f))
	return path
}

func TestDumpCommandPrintsClassAndMethod(t *testing.T) {
	path := writeSampleClass(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"dump", path})
	require.NoError(t, root.Execute())

	output := out.String()
	assert.Contains(t, output, "com/example/Widget")
	assert.Contains(t, output, "run")
}

func TestDumpCommandVerboseShowsInstructions(t *testing.T) {
	path := writeSampleClass(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--verbose", "dump", path})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Ldc")
}

func TestDumpCommandVerboseShowsStackMapTable(t *testing.T) {
	list := bytecode.NewInsnList()
	list.Append(bytecode.Ldc{Variant: bytecode.LdcInt, IntValue: 1})
	list.Append(bytecode.Return{Kind: bytecode.ReturnInt})

	var smt bytes.Buffer
	table := &stackmap.Table{Frames: []stackmap.Frame{stackmap.Same{OffsetDelta: 3}}}
	require.NoError(t, table.Write(&smt))

	cf := &classfile.ClassFile{
		MajorVersion: 61,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    "com/example/Framed",
		SuperClass:   "java/lang/Object",
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic,
				Name:        "run",
				Descriptor:  "()I",
				Code: &code.Attribute{
					MaxStack: 1, MaxLocals: 1, Insns: list,
					Attributes: []cpool.RawAttribute{{Name: "StackMapTable", Data: smt.Bytes()}},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "Framed.class")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, classfile.Write(cf, f))
	require.NoError(t, f.Close())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--verbose", "dump", path})
	require.NoError(t, root.Execute())

	output := out.String()
	assert.Contains(t, output, "StackMapTable: 1 frame(s)")
	assert.Contains(t, output, "Same")
}

func TestRoundtripCommandReportsOnFile(t *testing.T) {
	path := writeSampleClass(t)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"roundtrip", path})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), path)
}

func TestDumpCommandMissingFile(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"dump", "/nonexistent/does-not-exist.class"})
	assert.Error(t, root.Execute())
}
