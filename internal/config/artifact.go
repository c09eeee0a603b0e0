package config

import (
	"encoding/json"
	"errors"
)

var ErrNoArtifactBytecode = errors.New("artifact has no bytecode")

// artifactBytecode pulls the creation code out of a compiler artifact.
// Foundry nests it as {"bytecode": {"object": "0x..."}}, Hardhat stores the
// hex string directly under "bytecode".
func artifactBytecode(content []byte) (string, error) {
	var artifact struct {
		Bytecode json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(content, &artifact); err != nil {
		return "", err
	}
	if len(artifact.Bytecode) == 0 {
		return "", ErrNoArtifactBytecode
	}

	var code string
	if err := json.Unmarshal(artifact.Bytecode, &code); err == nil {
		return nonEmpty(code)
	}
	var foundry struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(artifact.Bytecode, &foundry); err != nil {
		return "", err
	}
	return nonEmpty(foundry.Object)
}

func nonEmpty(code string) (string, error) {
	if code == "" || code == "0x" {
		return "", ErrNoArtifactBytecode
	}
	return code, nil
}
