package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

// mobLine returns one mob_proto.txt row: schema defaults with the given
// VNUM and NAME and any column overrides.
func mobLine(vnum, name string, set ...string) string {
	s := model.MobProto()
	fields := s.NewRecord().Fields()
	fields[0] = vnum
	fields[1] = name
	for i := 0; i+1 < len(set); i += 2 {
		fields[s.Columns.Index(set[i])] = set[i+1]
	}
	return strings.Join(fields, "\t")
}

func headerLine() string {
	return strings.Join(model.MobProto().Columns.Names(), "\t")
}

func sampleTSV() string {
	return headerLine() + "\n" +
		mobLine("101", "Wild Dog", "EXP", "100", "LEVEL", "1") + "\n" +
		mobLine("102", "Wolf", "EXP", "200", "LEVEL", "3") + "\n" +
		mobLine("103", "Alpha Wolf", "EXP", "300", "DAM_MULTIPLY", "1.5") + "\n"
}

func parseSample(t *testing.T) *document.Document {
	t.Helper()
	d, err := ParseTSV(model.MobProto(), "mob_proto.txt", []byte(sampleTSV()))
	require.NoError(t, err)
	return d
}
