package parse

import (
	"encoding/json"
	"fmt"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// Children normalizes the profiles payload into the child set. Profiles or
// children that cannot be read are skipped with a warning; a payload that
// cannot be decoded at all is the only fatal case.
func Children(payload json.RawMessage) ([]model.Child, Warnings, error) {
	var doc struct {
		Profiles []struct {
			Children []json.RawMessage `json:"children"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode profiles payload: %w", err)
	}

	var warnings Warnings
	var children []model.Child
	for _, profile := range doc.Profiles {
		for _, raw := range profile.Children {
			child, err := oneChild(raw)
			if err != nil {
				warnings.Addf("profiles", "skipped child: %v", err)
				continue
			}
			children = append(children, child)
		}
	}
	return children, warnings, nil
}

func oneChild(raw json.RawMessage) (model.Child, error) {
	var doc struct {
		ID                 flexID `json:"id"`
		Name               string `json:"name"`
		UserID             flexID `json:"userId"`
		InstitutionProfile *struct {
			InstitutionName string `json:"institutionName"`
			InstitutionCode string `json:"institutionCode"`
		} `json:"institutionProfile"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Child{}, err
	}
	if doc.ID == "" {
		return model.Child{}, fmt.Errorf("child without id")
	}
	if doc.Name == "" {
		return model.Child{}, fmt.Errorf("child %s without name", doc.ID)
	}

	child := model.Child{
		ID:     doc.ID.String(),
		Name:   doc.Name,
		UserID: doc.UserID.String(),
	}
	if doc.InstitutionProfile != nil {
		child.InstitutionName = doc.InstitutionProfile.InstitutionName
		child.InstitutionCode = doc.InstitutionProfile.InstitutionCode
	}
	return child, nil
}
