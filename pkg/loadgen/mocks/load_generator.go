package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/GssMahadevan/gvthread/pkg/loadgen"
	"github.com/GssMahadevan/gvthread/pkg/metrics"
)

// LoadGenerator is an autogenerated mock type for the LoadGenerator type
type LoadGenerator struct {
	mock.Mock
}

// Drive provides a mock function with given fields: params
func (_m *LoadGenerator) Drive(params loadgen.DriveParams) (*metrics.Metrics, string, error) {
	ret := _m.Called(params)

	var r0 *metrics.Metrics
	if rf, ok := ret.Get(0).(func(loadgen.DriveParams) *metrics.Metrics); ok {
		r0 = rf(params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*metrics.Metrics)
		}
	}

	var r1 string
	if rf, ok := ret.Get(1).(func(loadgen.DriveParams) string); ok {
		r1 = rf(params)
	} else {
		r1 = ret.Get(1).(string)
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(loadgen.DriveParams) error); ok {
		r2 = rf(params)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// Name provides a mock function with given fields:
func (_m *LoadGenerator) Name() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}
