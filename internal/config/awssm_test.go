package config

import (
	"testing"
)

func TestResolveValue_AWSSM_NoCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_PROFILE", "tablewright-test-missing-profile")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	if _, err := ResolveValue("${AWS_SM:nonexistent-secret}"); err == nil {
		t.Error("expected error when AWS credentials are not configured")
	}
}

func TestResolveValue_AWSSM_BadReference(t *testing.T) {
	if _, err := ResolveValue("${AWS_SM:name#}"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestSecretField(t *testing.T) {
	v, err := secretField(`{"username":"app","password":"pw"}`, "shop", "password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "pw" {
		t.Errorf("expected pw, got %q", v)
	}

	if _, err := secretField(`{"username":"app"}`, "shop", "password"); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := secretField(`not json`, "shop", "password"); err == nil {
		t.Error("expected error for non-JSON secret")
	}
}
