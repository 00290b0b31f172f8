package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		prefix string
		label  string
		want   string
	}{
		{"zzt", "Data SFDC", "zzt-Data-SFDC"},
		{"zzt", "Café Reports!", "zzt-Cafe-Reports"},
		{"zzt", "  Load   Sales  ", "zzt-Load-Sales"},
		{"zzt", "Transfer_to_Repo", "zzt-Transfer_to_Repo"},
		{"zzt", "a--b", "zzt-a-b"},
		{"zzt", "???", "zzt-job"},
		{"", "Plain", "Plain"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.prefix, tt.label))
		})
	}
}
