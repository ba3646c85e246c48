package engine

import (
	"encoding/json"
	"testing"
)

func TestGridID_Other(t *testing.T) {
	if Small.Other() != Main || Main.Other() != Small {
		t.Error("Expected teleport to swap grids")
	}
}

func TestMotionState_JSON(t *testing.T) {
	data, err := json.Marshal(Snapshot{Motion: Pending})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["motion"] != "pending" {
		t.Errorf("Expected motion encoded as pending, got %v", decoded["motion"])
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snap.Motion != Pending {
		t.Errorf("Expected Pending after decode, got %s", snap.Motion)
	}
}
