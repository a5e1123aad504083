package server

import (
	"fmt"
	"net/http"

	"github.com/dpup/trailplanner/server/internal/logging"
)

const homepageHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>trailplanner</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">trailplanner</span>

Multi-day itinerary planner. Legs between stops are measured along the
recorded trail, with straight-line estimates where the trail cannot be used.

<span class="header">Trail data:</span>
  <a href="/api/v1/stages">GET /api/v1/stages</a>                                   - Accommodations grouped by stage
  <a href="/api/v1/accommodations?order=trail">GET /api/v1/accommodations</a>                           - Accommodations (?stage=, ?order=trail, ?max_access=)

<span class="header">Itineraries:</span>
  POST   /api/v1/itineraries                              - Start a plan
  GET    /api/v1/itineraries/{id}                         - Stops, legs and totals
  POST   /api/v1/itineraries/{id}/waypoints               - Add a stop {"accommodation_id": "..."}
  DELETE /api/v1/itineraries/{id}/waypoints/{wid}         - Remove a stop
  POST   /api/v1/itineraries/{id}/waypoints/{wid}/move    - Reorder {"direction": "up"|"down"}
  DELETE /api/v1/itineraries/{id}/waypoints               - Remove every stop
  GET    /api/v1/itineraries/{id}/export?format=text      - Export as text, kml or geojson

<span class="header">Saved plans:</span>
  POST   /api/v1/itineraries/{id}/save                    - Save the stop order
  <a href="/api/v1/plans">GET    /api/v1/plans</a>                                    - Saved plans
  POST   /api/v1/plans/{planID}/load                      - Open a saved plan

<span class="header">Health:</span>
  <a href="/healthz">GET /healthz</a>
</pre>
</body>
</html>`

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, homepageHTML); err != nil {
		logging.Errorw(r.Context(), "Failed to write homepage HTML", "error", err)
	}
}
