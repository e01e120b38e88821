package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the catalog module.
type Metrics struct {
	ListsCreated      prometheus.Counter
	ListsDeleted      prometheus.Counter
	PlacesCreated     prometheus.Counter
	LocationsAdded    prometheus.Counter
	LocationsRemoved  prometheus.Counter
	MembershipRejects *prometheus.CounterVec
	AddLocationTime   prometheus.Histogram
}

// New creates a Metrics instance with all catalog metrics registered.
func New() *Metrics {
	return &Metrics{
		ListsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_lists_created_total",
			Help: "Total number of user lists created, default lists included",
		}),
		ListsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_lists_deleted_total",
			Help: "Total number of lists deleted",
		}),
		PlacesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_places_created_total",
			Help: "Total number of canonical place records created",
		}),
		LocationsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_list_locations_added_total",
			Help: "Total number of places added to lists",
		}),
		LocationsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_list_locations_removed_total",
			Help: "Total number of places removed from lists",
		}),
		MembershipRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_membership_rejections_total",
			Help: "Membership changes rejected by reason",
		}, []string{"reason"}),
		AddLocationTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waypoint_add_location_duration_seconds",
			Help:    "Duration of AddLocationToList operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementListsCreated(n int) {
	m.ListsCreated.Add(float64(n))
}

func (m *Metrics) IncrementListsDeleted() {
	m.ListsDeleted.Inc()
}

func (m *Metrics) IncrementPlacesCreated() {
	m.PlacesCreated.Inc()
}

func (m *Metrics) IncrementLocationsAdded() {
	m.LocationsAdded.Inc()
}

func (m *Metrics) IncrementLocationsRemoved() {
	m.LocationsRemoved.Inc()
}

// IncrementRejected counts a refused membership change, e.g. "already_member".
func (m *Metrics) IncrementRejected(reason string) {
	m.MembershipRejects.WithLabelValues(reason).Inc()
}

// ObserveAddLocation records the duration of an AddLocationToList call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAddLocation(start time.Time) {
	m.AddLocationTime.Observe(time.Since(start).Seconds())
}
