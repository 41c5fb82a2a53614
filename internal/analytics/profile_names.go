package analytics

// weekendThreshold is well above the 2/7 share an evenly spread listener has.
const weekendThreshold = 0.5

// profileName names a profile after the part of day holding the largest
// share of plays. Ties go to the earlier part of day.
//
//   - night     = "Night Owls"
//   - morning   = "Early Birds"
//   - afternoon = "Afternoon Listeners"
//   - evening   = "Evening Listeners"
//
// A weekend share above 0.5 appends " (Weekend)".
func profileName(centroid map[string]float64) string {
	parts := []struct {
		feature string
		name    string
	}{
		{"night", "Night Owls"},
		{"morning", "Early Birds"},
		{"afternoon", "Afternoon Listeners"},
		{"evening", "Evening Listeners"},
	}

	best := parts[0]
	for _, p := range parts[1:] {
		if centroid[p.feature] > centroid[best.feature] {
			best = p
		}
	}

	if centroid["weekend"] > weekendThreshold {
		return best.name + " (Weekend)"
	}
	return best.name
}
