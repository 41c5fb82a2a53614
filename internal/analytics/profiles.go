// Package analytics groups listeners into profiles by when they play music.
package analytics

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// Listener holds one user's play counts by part of day.
type Listener struct {
	UserID    int64
	Night     int64 // 00:00-05:59
	Morning   int64 // 06:00-11:59
	Afternoon int64 // 12:00-17:59
	Evening   int64 // 18:00-23:59
	Weekend   int64 // plays on Saturday or Sunday
	Total     int64
}

// Config holds clustering parameters.
type Config struct {
	NumProfiles int   // Number of clusters to create (default: 3)
	MinPlays    int64 // Listeners with fewer plays are left out as sparse
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumProfiles: 3,
		MinPlays:    5,
	}
}

// Profile is a cluster of listeners with similar listening hours.
type Profile struct {
	Name     string             // e.g. "Night Owls" or "Evening Listeners (Weekend)"
	UserIDs  []int64            // sorted ascending
	Centroid map[string]float64 // average share of plays per feature
}

// featureNames defines the listening shares used for clustering.
var featureNames = []string{"night", "morning", "afternoon", "evening", "weekend"}

// listenerObservation wraps a Listener to implement clusters.Observation.
type listenerObservation struct {
	listener *Listener
	coords   clusters.Coordinates
}

func (o listenerObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o listenerObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectProfiles clusters listeners by the share of their plays in each part
// of the day and on weekends using k-means. Listeners below cfg.MinPlays are
// returned as sparse. When there are fewer listeners than profiles, the
// number of profiles is reduced to the number of listeners.
func DetectProfiles(listeners []Listener, cfg Config) ([]Profile, []Listener, error) {
	if len(listeners) == 0 {
		return nil, nil, nil
	}
	if cfg.NumProfiles <= 0 {
		cfg.NumProfiles = DefaultConfig().NumProfiles
	}

	var active []*Listener
	var sparse []Listener
	for i := range listeners {
		l := &listeners[i]
		if l.Total > 0 && l.Total >= cfg.MinPlays {
			active = append(active, l)
		} else {
			sparse = append(sparse, *l)
		}
	}
	if len(active) == 0 {
		return nil, sparse, nil
	}

	k := min(cfg.NumProfiles, len(active))

	var obs clusters.Observations
	for _, l := range active {
		obs = append(obs, listenerObservation{listener: l, coords: shares(l)})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, k)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering listeners: %w", err)
	}

	var profiles []Profile
	for _, cluster := range result {
		var ids []int64
		for _, o := range cluster.Observations {
			if lo, ok := o.(listenerObservation); ok {
				ids = append(ids, lo.listener.UserID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		slices.Sort(ids)

		// Center may be stale when the partition converged without moving it.
		center, err := cluster.Observations.Center()
		if err != nil {
			return nil, nil, fmt.Errorf("averaging profile: %w", err)
		}
		centroid := make(map[string]float64, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = center[i]
		}

		profiles = append(profiles, Profile{
			Name:     profileName(centroid),
			UserIDs:  ids,
			Centroid: centroid,
		})
	}

	// Largest profiles first
	slices.SortFunc(profiles, func(a, b Profile) int {
		if c := cmp.Compare(len(b.UserIDs), len(a.UserIDs)); c != 0 {
			return c
		}
		return cmp.Compare(a.UserIDs[0], b.UserIDs[0])
	})

	return profiles, sparse, nil
}

// shares converts play counts to per-feature shares in [0, 1].
func shares(l *Listener) clusters.Coordinates {
	total := float64(l.Total)
	return clusters.Coordinates{
		float64(l.Night) / total,
		float64(l.Morning) / total,
		float64(l.Afternoon) / total,
		float64(l.Evening) / total,
		float64(l.Weekend) / total,
	}
}
