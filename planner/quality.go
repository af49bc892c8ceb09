package planner

// Quality is the expected visual quality of a plan
type Quality int

const (
	QualityUnknown Quality = iota
	QualityLow
	QualityAcceptable
	QualityGood
	QualityExcellent
)

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityAcceptable:
		return "acceptable"
	case QualityGood:
		return "good"
	case QualityExcellent:
		return "excellent"
	}
	return "unknown"
}

// bitrate tiers in kbps, keyed by minimum frame height
var qualityTiers = []struct {
	minHeight                   int
	excellent, good, acceptable int
}{
	{2160, 35000, 20000, 13000},
	{1440, 16000, 10000, 6000},
	{1080, 8000, 5000, 3000},
	{720, 5000, 2500, 1500},
	{480, 2500, 1000, 500},
	{1, 1000, 500, 250},
}

// EstimateQuality grades videoKbps against upload recommendations for the
// source height. Height 0 (no video stream) is QualityUnknown.
func EstimateQuality(videoKbps, height int) Quality {
	if height <= 0 {
		return QualityUnknown
	}
	for _, tier := range qualityTiers {
		if height < tier.minHeight {
			continue
		}
		switch {
		case videoKbps >= tier.excellent:
			return QualityExcellent
		case videoKbps >= tier.good:
			return QualityGood
		case videoKbps >= tier.acceptable:
			return QualityAcceptable
		default:
			return QualityLow
		}
	}
	return QualityUnknown
}
