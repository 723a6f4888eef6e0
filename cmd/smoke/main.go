// Command smoke walks a running server through the timeline lifecycle:
// axis, era, segment, marker, temporal reads, then the axis cascade.
// When SMOKE_SUBJECT is set to "type:id" for an entity that exists in
// the target database, it also writes and replays state changes.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	baseURL  = "http://localhost:8080"
	database = "smoke-" + fmt.Sprintf("%d", time.Now().Unix())
)

func main() {
	if v := os.Getenv("SMOKE_BASE_URL"); v != "" {
		baseURL = v
	}
	if v := os.Getenv("SMOKE_DATABASE"); v != "" {
		database = v
	}

	fmt.Println("Starting smoke walk against", baseURL, "database", database)

	// 1. Axis
	fmt.Println("1. Creating main axis...")
	axis, ok := request("POST", "/timeline-axes", map[string]interface{}{
		"name": "Prime Timeline",
		"code": "PRIME",
	}, http.StatusCreated)
	if !ok {
		fail("create axis")
	}
	axisID := dataID(axis)
	fmt.Println("PASSED: axis", axisID)

	// A second main axis must conflict.
	if _, ok := request("POST", "/timeline-axes", map[string]interface{}{
		"name": "Usurper",
	}, http.StatusConflict); !ok {
		fail("main axis uniqueness")
	}
	fmt.Println("PASSED: main axis uniqueness")

	// 2. Era
	fmt.Println("2. Creating era...")
	era, ok := request("POST", "/timeline-eras", map[string]interface{}{
		"axisId": axisID,
		"name":   "First Age",
		"order":  1,
	}, http.StatusCreated)
	if !ok {
		fail("create era")
	}
	eraID := dataID(era)
	fmt.Println("PASSED: era", eraID)

	// 3. Segment
	fmt.Println("3. Creating segment...")
	segment, ok := request("POST", "/timeline-segments", map[string]interface{}{
		"eraId":         eraID,
		"name":          "The Long Peace",
		"durationYears": 100,
	}, http.StatusCreated)
	if !ok {
		fail("create segment")
	}
	segmentID := dataID(segment)
	fmt.Println("PASSED: segment", segmentID)

	// 4. Marker
	fmt.Println("4. Creating marker...")
	marker, ok := request("POST", "/timeline-markers", map[string]interface{}{
		"segmentId": segmentID,
		"label":     "The Fall",
		"tick":      50,
	}, http.StatusCreated)
	if !ok {
		fail("create marker")
	}
	markerID := dataID(marker)
	fmt.Println("PASSED: marker", markerID)

	// 5. State changes against an existing subject, when one is named.
	if subject := os.Getenv("SMOKE_SUBJECT"); subject != "" {
		parts := strings.SplitN(subject, ":", 2)
		if len(parts) != 2 {
			fail("SMOKE_SUBJECT must be type:id")
		}
		fmt.Println("5. Writing state changes for", subject, "...")
		for i, change := range []map[string]interface{}{
			{"fieldPath": "status", "newValue": `"alive"`, "effectiveTick": 1},
			{"fieldPath": "status", "newValue": `"dead"`, "effectiveTick": 40},
		} {
			change["axisId"] = axisID
			change["markerId"] = markerID
			change["subjectType"] = parts[0]
			change["subjectId"] = parts[1]
			change["changeType"] = "update"
			if _, ok := request("POST", "/timeline-state-changes", change, http.StatusCreated); !ok {
				fail(fmt.Sprintf("create state change %d", i+1))
			}
		}
		fmt.Println("PASSED: state changes")

		path := fmt.Sprintf("/timeline-state-changes/history?axisId=%s&subjectType=%s&subjectId=%s",
			axisID, parts[0], parts[1])
		if _, ok := request("GET", path, nil, http.StatusOK); !ok {
			fail("history")
		}
		fmt.Println("PASSED: history")
	}

	// 6. Temporal reads
	fmt.Println("6. Reading snapshot and projection...")
	for _, path := range []string{
		"/timeline-state-changes/snapshot?axisId=" + axisID + "&tick=10",
		"/timeline-state-changes/projection?axisId=" + axisID + "&tick=10",
	} {
		if _, ok := request("GET", path, nil, http.StatusOK); !ok {
			fail(path)
		}
	}
	fmt.Println("PASSED: temporal reads")

	// 7. Cascade
	fmt.Println("7. Deleting axis (cascade)...")
	if _, ok := request("DELETE", "/timeline-axes/"+axisID, nil, http.StatusNoContent); !ok {
		fail("delete axis")
	}
	if _, ok := request("GET", "/timeline-markers/"+markerID, nil, http.StatusNotFound); !ok {
		fail("marker should be gone after axis cascade")
	}
	fmt.Println("PASSED: cascade")

	fmt.Println("Smoke walk complete.")
}

func fail(step string) {
	fmt.Println("FAILED:", step)
	os.Exit(1)
}

func dataID(body map[string]interface{}) string {
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		fail("response has no data object")
	}
	id, _ := data["id"].(string)
	return id
}

func request(method, endpoint string, payload interface{}, want int) (map[string]interface{}, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Database", database)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("%s %s: want status %d, got %d: %s\n", method, endpoint, want, resp.StatusCode, string(respBody))
		return nil, false
	}

	var out map[string]interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return nil, false
		}
	}
	return out, true
}
