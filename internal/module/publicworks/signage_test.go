package publicworks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/module"
	"civitas/internal/module/moduletest"
	"civitas/internal/module/publicworks"
	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/requestcontext"
)

func TestSignagePriority(t *testing.T) {
	tests := []struct {
		name string
		in   publicworks.SignageRequest
		want id.Priority
	}{
		{"missing near school", publicworks.SignageRequest{Issue: "missing", NearSchool: true}, id.PriorityUrgent},
		{"missing at accident spot", publicworks.SignageRequest{Issue: "missing", AccidentHistory: true}, id.PriorityUrgent},
		{"missing elsewhere", publicworks.SignageRequest{Issue: "missing"}, id.PriorityLow},
		{"damaged on busy road", publicworks.SignageRequest{Issue: "damaged", TrafficImpact: "high"}, id.PriorityHigh},
		{"faded", publicworks.SignageRequest{Issue: "faded"}, id.PriorityNormal},
		{"medium traffic", publicworks.SignageRequest{Issue: "damaged", TrafficImpact: "medium"}, id.PriorityNormal},
		{"new sign on quiet street", publicworks.SignageRequest{Issue: "new", TrafficImpact: "low"}, id.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicworks.SignagePriority(tt.in))
		})
	}
}

func TestSignageHandler(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC))
	h := publicworks.NewSignageHandler()
	scope := moduletest.NewScope()
	action := module.Action{Type: publicworks.ModuleType, Entity: publicworks.SignageEntity}

	t.Run("creates a numbered request", func(t *testing.T) {
		action.Data = map[string]any{
			"location":     "Rua XV x Av. Brasil",
			"signageType":  "Stop",
			"issue":        "Missing",
			"nearHospital": "sim",
			"photos":       []any{"a.jpg"},
		}
		require.True(t, h.CanHandle(action))
		res, err := h.Execute(ctx, action, scope)
		require.NoError(t, err)
		assert.Equal(t, "SIN-2025-00001", res.Number)
		assert.Equal(t, id.PriorityUrgent, res.Record.Priority)
		assert.Equal(t, "stop", res.Record.Category)
		assert.Equal(t, `["a.jpg"]`, res.Record.Attributes["photos"])
	})

	t.Run("issue is required", func(t *testing.T) {
		action.Data = map[string]any{"location": "x", "signageType": "stop"}
		_, err := h.Execute(ctx, action, scope)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("status follows the protocol", func(t *testing.T) {
		s, ok := h.RecordStatus("APPROVED")
		assert.True(t, ok)
		assert.Equal(t, "planned", s)
		_, ok = h.RecordStatus("UNDER_ANALYSIS")
		assert.False(t, ok)
	})
}
