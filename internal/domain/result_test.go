package domain

import (
	"encoding/json"
	"testing"
)

func TestResult_MarshalEmpty(t *testing.T) {
	b, err := json.Marshal(SuccessResult(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"suggestions":[]}` {
		t.Errorf("Marshal() = %s", b)
	}
}

func TestResult_MarshalError(t *testing.T) {
	r := ErrorResult(&Error{Kind: ErrUpstreamAuth, Status: 401})
	if !r.Failed() {
		t.Error("Failed() = false")
	}

	b, _ := json.Marshal(r)
	if string(b) != `{"error":{"kind":"upstream_auth_failure","status":401,"message":"upstream authentication failed"}}` {
		t.Errorf("Marshal() = %s", b)
	}
}
