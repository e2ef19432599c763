package cmd

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

func TestTruncateStringKeepsCharactersWhole(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
	}{
		{name: "accented", in: "Les Misérables et autres histoires", width: 10},
		{name: "accent at cut", in: "ééééééééééééé", width: 8},
		{name: "wide", in: "吾輩は猫である", width: 10},
		{name: "emoji", in: "📚📚📚📚📚📚📚📚", width: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateString(tt.in, tt.width)
			assert.True(t, utf8.ValidString(got), "invalid UTF-8: %q", got)
			assert.LessOrEqual(t, runewidth.StringWidth(got), tt.width)
			assert.True(t, strings.HasSuffix(got, "..."), got)
		})
	}

	assert.Equal(t, "short", truncateString("short", 10))
}

func TestCellPadsToColumnWidth(t *testing.T) {
	for _, s := range []string{"", "Émile", "吾輩は猫である", "a much longer value than fits"} {
		assert.Equal(t, 12, runewidth.StringWidth(cell(s, 12)), "cell(%q)", s)
	}
}

func TestPrintBooksAlignsNonASCIIRows(t *testing.T) {
	var out bytes.Buffer
	printBooks(&out, []library.Book{
		{ISBN: "111", Title: "Dune", Author: "Frank Herbert", Genre: "SF", Stock: 1},
		{ISBN: "222", Title: "Cien años de soledad, edición conmemorativa", Author: "Gabriel García Márquez", Genre: "Novela", Stock: 12},
		{ISBN: "333", Title: "吾輩は猫である", Author: "夏目漱石", Genre: "小説", Stock: 3},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	want := runewidth.StringWidth(lines[0])
	for _, line := range lines[2:] {
		assert.True(t, utf8.ValidString(line))
		assert.Equal(t, want, runewidth.StringWidth(line), "misaligned row %q", line)
	}
}
