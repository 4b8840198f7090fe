package spectrum

import "fmt"

// Band is a known frequency range with its common use.
type Band struct {
	Low   float64
	High  float64
	Label string
}

// knownBands is static lookup data. The ranges overlap in places; they are
// checked in declaration order and the first match wins.
var knownBands = []Band{
	// Aviation
	{108e6, 118e6, "Aviation AM"},
	{118e6, 137e6, "Aviation AM"},
	{1090e6, 1090e6, "ADS-B"},
	{978e6, 978e6, "UAT"},

	// Marine
	{156e6, 162e6, "Marine VHF"},
	{161.975e6, 162.025e6, "AIS"},

	// Amateur radio
	{144e6, 148e6, "2m Amateur"},
	{430e6, 440e6, "70cm Amateur"},
	{14e6, 14.35e6, "20m Amateur"},

	// Broadcast
	{88e6, 108e6, "FM Broadcast"},
	{535e3, 1705e3, "AM Broadcast"},

	// Emergency
	{150.8e6, 162.5e6, "Public Safety"},

	// ISM
	{433.05e6, 434.79e6, "ISM 433"},
	{902e6, 928e6, "ISM 900"},
	{2.4e9, 2.5e9, "ISM 2.4G"},
}

// annotateKnownBand appends the label of the first matching known band to the
// signal's modulation hint and raises its confidence.
func annotateKnownBand(signal *Signal) {
	for _, band := range knownBands {
		if band.Low <= signal.Frequency && signal.Frequency <= band.High {
			signal.ModulationHint = fmt.Sprintf("%s (%s)", signal.ModulationHint, band.Label)
			signal.Confidence = min(signal.Confidence+0.2, 1.0)
			return
		}
	}
}

// guessModulation classifies a signal by its occupied bandwidth. This is a
// coarse heuristic, not a demodulator.
func guessModulation(bandwidth float64) string {
	switch {
	case bandwidth < 200:
		return "CW"
	case bandwidth < 3000:
		return "NFM"
	case bandwidth < 10000:
		return "AM/NFM"
	case bandwidth < 200000:
		return "WFM"
	default:
		return "Digital/TV"
	}
}
