package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "keygate/pkg/domain-errors"
)

func TestDeviceCapFor(t *testing.T) {
	cap, known := DeviceCapFor(PlanPersonal)
	assert.Equal(t, 1, cap)
	assert.True(t, known)

	cap, known = DeviceCapFor(PlanProfessional)
	assert.Equal(t, 3, cap)
	assert.True(t, known)

	cap, known = DeviceCapFor(Plan("enterprise"))
	assert.Equal(t, DefaultDeviceCap, cap, "unknown plans get the safe default cap")
	assert.False(t, known)
}

func TestActivationHelpers(t *testing.T) {
	l := &License{DeviceCap: 2, Activations: []string{"a"}}

	assert.True(t, l.IsActivated("a"))
	assert.False(t, l.IsActivated("b"))
	assert.False(t, l.AtCap())

	l.Activations = append(l.Activations, "b")
	assert.True(t, l.AtCap())
}

func TestStateTransitions(t *testing.T) {
	l := &License{Active: true}

	require.NoError(t, l.CanDeactivate())
	assert.True(t, dErrors.HasCode(l.CanReactivate(), dErrors.CodeConflict))

	l.Active = false
	require.NoError(t, l.CanReactivate())
	assert.True(t, dErrors.HasCode(l.CanDeactivate(), dErrors.CodeConflict))
}

func TestCloneIsDeep(t *testing.T) {
	l := &License{Key: "PZDT-0000-0000-0000-0001", Activations: []string{"a"}}
	cp := l.Clone()
	cp.Activations[0] = "mutated"
	cp.Activations = append(cp.Activations, "b")

	assert.Equal(t, []string{"a"}, l.Activations)
}

func TestEventTokenNeverSerializes(t *testing.T) {
	l := &License{Key: "PZDT-0000-0000-0000-0001", EventToken: "secret-token"}
	raw, err := json.Marshal(l)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
}
