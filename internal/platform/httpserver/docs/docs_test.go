package docs

import (
	"encoding/json"
	"testing"
)

func TestDocListsEveryRoute(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("doc is not valid json: %v", err)
	}
	routes := map[string]string{
		"/v1/tournaments":                                           "post",
		"/v1/tournaments/{tournament_id}":                           "get",
		"/v1/tournaments/{tournament_id}/registration/open":         "post",
		"/v1/tournaments/{tournament_id}/competitors":               "post",
		"/v1/tournaments/{tournament_id}/judges":                    "post",
		"/v1/tournaments/{tournament_id}/qualifying/start":          "post",
		"/v1/tournaments/{tournament_id}/qualifying/advance":        "post",
		"/v1/tournaments/{tournament_id}/qualifying/end":            "post",
		"/v1/tournaments/{tournament_id}/laps/{lap_id}/scores":      "put",
		"/v1/tournaments/{tournament_id}/laps/{lap_id}/penalty":     "put",
		"/v1/tournaments/{tournament_id}/battles/{battle_id}/votes": "put",
		"/v1/tournaments/{tournament_id}/battles/advance":           "post",
		"/v1/tournaments/{tournament_id}/battles/next":              "post",
		"/v1/tournaments/{tournament_id}/wildcard":                  "post",
		"/v1/ratings/{region}":                                      "get",
		"/v1/ratings/{region}/batch":                                "post",
		"/v1/ratings/{region}/drivers/{driver_id}/history":          "get",
	}
	for path, method := range routes {
		operations, ok := doc.Paths[path]
		if !ok {
			t.Fatalf("expected %s in the doc", path)
		}
		if _, ok := operations[method]; !ok {
			t.Fatalf("expected %s %s in the doc", method, path)
		}
	}
}
