package extract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/linemap/internal/testutil"
)

func TestNewExtractCmd(t *testing.T) {
	cmd := NewExtractCmd()
	assert.Equal(t, "extract <binary>", cmd.Use)

	for _, name := range []string{"output", "module", "format", "one-per-line"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", cmd.Flags().Lookup("output").Shorthand)
	assert.Equal(t, "m", cmd.Flags().Lookup("module").Shorthand)
}

func TestExtractCmd_WithoutRoot(t *testing.T) {
	bin := testutil.WriteImage(t, "a.out", testutil.Image{
		Units: []testutil.Unit{{
			Name: "main.c",
			Line: &testutil.LineProgram{
				Version:     5,
				IncludeDirs: []string{"/src"},
				Files:       []testutil.LineFile{{Name: "main.c"}},
				Ops:         testutil.NewLineOps().SetFile(0).SetAddress(0x1000).AdvanceLine(9).Copy().EndSequence().Bytes(),
			},
		}},
	})

	var out bytes.Buffer
	cmd := NewExtractCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{bin, "-f", "csv"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "a.out,/src/main.c,10,0x1000\n", out.String())
}
