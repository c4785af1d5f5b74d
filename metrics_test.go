package scaffold

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestOpMetricsObserve(t *testing.T) {
	m := NewOpMetrics()

	m.ObserveValidate(ValidateResult{Validity: Valid}, nil)
	m.ObserveValidate(ValidateResult{Validity: Invalid}, nil)
	m.ObserveValidate(ValidateResult{Validity: RequestRelated}, nil)
	m.ObserveValidate(ValidateResult{}, decodeErr(FieldState, errors.New("bad")))

	assert.Equal(t, uint64(4), m.validateTotal.Load())
	assert.Equal(t, uint64(1), m.validateValid.Load())
	assert.Equal(t, uint64(1), m.validateInvalid.Load())
	assert.Equal(t, uint64(1), m.validateRequests.Load())
	assert.Equal(t, uint64(1), m.decodeFailures.Load())

	m.ObserveUpdate(nil)
	m.ObserveUpdate(&DomainError{Op: "apply", Index: 0, Err: errors.New("no")})
	assert.Equal(t, uint64(2), m.updateTotal.Load())
	assert.Equal(t, uint64(1), m.updateRejected.Load())

	m.ObserveSummarize(nil)
	m.ObserveDelta(nil)
	m.ObserveFetch()
	assert.Equal(t, uint64(1), m.summarizeTotal.Load())
	assert.Equal(t, uint64(1), m.deltaTotal.Load())
	assert.Equal(t, uint64(1), m.relatedFetches.Load())
}

func TestOpMetricsNilReceiver(t *testing.T) {
	var m *OpMetrics
	m.ObserveValidate(ValidateResult{}, nil)
	m.ObserveSummarize(nil)
	m.ObserveDelta(nil)
	m.ObserveUpdate(nil)
	m.ObserveFetch()
}

func TestMetricsCollector(t *testing.T) {
	m := NewOpMetrics()
	m.ObserveValidate(ValidateResult{Validity: Valid}, nil)

	reg := prometheus.NewPedanticRegistry()
	assert.NoError(t, reg.Register(NewMetricsCollector(m)))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 10)

	byName := map[string]float64{}
	for _, mf := range families {
		byName[mf.GetName()] = mf.GetMetric()[0].GetCounter().GetValue()
	}
	assert.Equal(t, float64(1), byName["scaffold_validate_total"])
	assert.Equal(t, float64(1), byName["scaffold_validate_valid_total"])
	assert.Equal(t, float64(0), byName["scaffold_update_total"])
}
