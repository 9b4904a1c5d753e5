package version

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type VersionTestSuite struct {
	suite.Suite
}

func TestVersionSuite(t *testing.T) {
	suite.Run(t, new(VersionTestSuite))
}

func (suite *VersionTestSuite) TestCheckCompatibility() {
	tests := []struct {
		name     string
		required string
		ok       bool
	}{
		{name: "empty requirement", required: "", ok: true},
		{name: "exact version", required: EngineVersion, ok: true},
		{name: "older same major", required: "1.0.0", ok: true},
		{name: "newer minor", required: "1.9.0", ok: false},
		{name: "different major", required: "2.0.0", ok: false},
		{name: "zero major", required: "0.9.0", ok: false},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := CheckCompatibility(tt.required)
			if tt.ok {
				suite.NoError(err)
			} else {
				suite.Require().Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
			}
		})
	}
}

func (suite *VersionTestSuite) TestCheckCompatibilityRejectsGarbage() {
	err := CheckCompatibility("not-a-version")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}
