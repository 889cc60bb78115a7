package storage

import (
	"encoding/json"
	"errors"

	"phylosim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeMutations(nodes []model.NodeMutations) ([]byte, error) {
	return json.Marshal(nodes)
}

func DecodeMutations(data []byte) ([]model.NodeMutations, error) {
	var nodes []model.NodeMutations
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func EncodeSiteInfo(sites []model.SiteInfo) ([]byte, error) {
	return json.Marshal(sites)
}

func DecodeSiteInfo(data []byte) ([]model.SiteInfo, error) {
	var sites []model.SiteInfo
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func EncodeLeafSequences(leaves []model.LeafSequence) ([]byte, error) {
	return json.Marshal(leaves)
}

func DecodeLeafSequences(data []byte) ([]model.LeafSequence, error) {
	var leaves []model.LeafSequence
	if err := json.Unmarshal(data, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// Stamp fills in the current schema and codec versions.
func Stamp(run *model.RunRecord) {
	run.SchemaVersion = CurrentSchemaVersion
	run.CodecVersion = CurrentCodecVersion
}
