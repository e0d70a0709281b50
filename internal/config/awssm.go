package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// resolveAWSSecretsManager resolves an AWS Secrets Manager reference. The
// reference is a secret name, optionally followed by #key to pick one field
// of a JSON secret.
func resolveAWSSecretsManager(ref string) (string, error) {
	name, key := ref, ""
	if strings.Contains(ref, "#") {
		var err error
		name, key, err = splitRef(ref, "AWS Secrets Manager")
		if err != nil {
			return "", err
		}
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}

	if key == "" {
		return *out.SecretString, nil
	}
	return secretField(*out.SecretString, name, key)
}

// secretField extracts one string field from a JSON secret value.
func secretField(secret, name, key string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(secret), &fields); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	v, ok := fields[key].(string)
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, name)
	}
	return v, nil
}
