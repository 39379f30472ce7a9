package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTypes(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"repeated", []string{"order", "work_order"}, []string{"order", "work_order"}},
		{"comma separated", []string{"order, purchase_order"}, []string{"order", "purchase_order"}},
		{"blank entries dropped", []string{",design_job,", " "}, []string{"design_job"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTypes(tt.in))
		})
	}
}
