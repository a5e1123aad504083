package geo

// Aggregate walks the track from start to end and sums distance, ascent and descent.
//
// A request with start >= end or an index outside the track yields the zero
// SegmentStats, which callers treat as "no trail-relative data". Reversed ranges
// are not swapped here.
func Aggregate(t *Track, start, end int) SegmentStats {
	n := t.PointCount()
	if start >= end || start < 0 || end >= n {
		return SegmentStats{}
	}

	var stats SegmentStats
	for i := start; i < end; i++ {
		a, b := t.points[i], t.points[i+1]
		stats.DistanceKm += Distance(a.Point(), b.Point())

		gain, loss := ElevationDelta(a.Elevation, b.Elevation)
		stats.GainM += gain
		stats.LossM += loss
	}

	return stats
}
