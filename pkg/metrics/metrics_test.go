package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/echelon/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func scrape(m *metrics.Manager) string {
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestMetrics(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		metrics.RecordRaceRated("cyclocross")
		metrics.RecordRanksWritten("cyclocross", 12)
		metrics.RecordPointsRows("cyclocross", 5)
		metrics.RecordScheduleMiss("cyclocross")
		metrics.RecordUpgradeFlagged("cyclocross")
		metrics.RecordOracleFetch()
		metrics.RecordOracleCacheHit()
		metrics.ObserveRecompute("cyclocross", "ratings", 1.5)

		body := scrape(metrics.Default())

		Convey("Counters are exported under the echelon namespace", func() {
			So(body, ShouldContainSubstring, `echelon_races_rated_total{discipline="cyclocross"}`)
			So(body, ShouldContainSubstring, `echelon_ranks_written_total{discipline="cyclocross"} 12`)
			So(body, ShouldContainSubstring, "echelon_oracle_fetches_total")
		})

		Convey("The recompute histogram is labeled by pass", func() {
			So(body, ShouldContainSubstring, `pass="ratings"`)
		})
	})
}
