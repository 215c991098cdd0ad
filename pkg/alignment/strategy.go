package alignment

import (
	"fmt"
	"strings"

	"holorecon/internal/models"
)

// Strategy names a drift estimation method.
type Strategy int

const (
	StrategyRegistration Strategy = iota
	StrategyCrossCorrelation
	StrategyFiducial
	StrategyManual
)

func (s Strategy) String() string {
	switch s {
	case StrategyRegistration:
		return "registration"
	case StrategyCrossCorrelation:
		return "crosscorrelation"
	case StrategyFiducial:
		return "fiducial"
	case StrategyManual:
		return "manual"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy. Names are case
// insensitive; "imgreg" and "xcorr" are accepted as aliases.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "registration", "imgreg":
		return StrategyRegistration, nil
	case "crosscorrelation", "xcorr":
		return StrategyCrossCorrelation, nil
	case "fiducial":
		return StrategyFiducial, nil
	case "manual":
		return StrategyManual, nil
	}
	return 0, fmt.Errorf("%w: unknown alignment strategy %q", models.ErrConfiguration, name)
}

// Method selects a strategy together with the parameters only it uses.
type Method interface {
	Strategy() Strategy
}

// Registration estimates a sub-pixel drift by phase correlation refined
// with an upsampled DFT around the correlation peak.
type Registration struct {
	// Upsample is the sub-pixel resolution factor; 1 gives whole pixels
	Upsample int
}

func (Registration) Strategy() Strategy { return StrategyRegistration }

// CrossCorrelation matches a template cut from the target against the
// reference in real space. Its cost grows with the square of the image
// size, so it is meant for small images or heavy binning.
type CrossCorrelation struct {
	// Bin is the block-averaging factor applied before correlating
	Bin int
}

func (CrossCorrelation) Strategy() Strategy { return StrategyCrossCorrelation }

// Fiducial asks the selector for one marker position per image.
type Fiducial struct{}

func (Fiducial) Strategy() Strategy { return StrategyFiducial }

// Manual applies a drift supplied by the caller.
type Manual struct {
	Offset *models.DriftVector
}

func (Manual) Strategy() Strategy { return StrategyManual }

// MethodFor builds the method for strategy s from the numeric options
// shared by the configuration file and the command line.
func MethodFor(s Strategy, upsample, bin int, manual *models.DriftVector) (Method, error) {
	switch s {
	case StrategyRegistration:
		return Registration{Upsample: upsample}, nil
	case StrategyCrossCorrelation:
		return CrossCorrelation{Bin: bin}, nil
	case StrategyFiducial:
		return Fiducial{}, nil
	case StrategyManual:
		return Manual{Offset: manual}, nil
	}
	return nil, fmt.Errorf("%w: unknown alignment strategy %v", models.ErrConfiguration, s)
}
