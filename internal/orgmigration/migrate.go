// Package orgmigration relinks publications after a cristin
// organization changes identifier: a list step collects the affected
// publications into a report, an update step rewrites their
// affiliations in place.
package orgmigration

import (
	"encoding/json"
	"fmt"
	"strings"
)

// deepCopy clones a JSON document.
func deepCopy(doc map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	var clone map[string]interface{}
	if err := json.Unmarshal(payload, &clone); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	return clone, nil
}

func swapSuffix(value, oldSuffix, newSuffix string) (string, bool) {
	if value == "" || !strings.HasSuffix(value, oldSuffix) {
		return value, false
	}
	return value[:len(value)-len(oldSuffix)] + newSuffix, true
}

// MigrateContributorAffiliations returns a copy of the publication
// with every contributor affiliation id ending in oldIdentifier
// repointed to newIdentifier. The second return value reports whether
// anything changed.
func MigrateContributorAffiliations(publication map[string]interface{}, oldIdentifier, newIdentifier string) (map[string]interface{}, bool, error) {
	updated, err := deepCopy(publication)
	if err != nil {
		return nil, false, err
	}

	changed := false
	entityDescription, _ := updated["entityDescription"].(map[string]interface{})
	contributors, _ := entityDescription["contributors"].([]interface{})
	for _, entry := range contributors {
		contributor, _ := entry.(map[string]interface{})
		affiliations, _ := contributor["affiliations"].([]interface{})
		for _, a := range affiliations {
			affiliation, _ := a.(map[string]interface{})
			id, _ := affiliation["id"].(string)
			if next, ok := swapSuffix(id, oldIdentifier, newIdentifier); ok {
				affiliation["id"] = next
				changed = true
			}
		}
	}
	return updated, changed, nil
}

// MigrateOwnerAffiliation returns a copy of the publication with the
// resource owner affiliation repointed when it ends in oldIdentifier.
func MigrateOwnerAffiliation(publication map[string]interface{}, oldIdentifier, newIdentifier string) (map[string]interface{}, bool, error) {
	updated, err := deepCopy(publication)
	if err != nil {
		return nil, false, err
	}

	resourceOwner, _ := updated["resourceOwner"].(map[string]interface{})
	ownerAffiliation, _ := resourceOwner["ownerAffiliation"].(string)
	if next, ok := swapSuffix(ownerAffiliation, oldIdentifier, newIdentifier); ok {
		resourceOwner["ownerAffiliation"] = next
		return updated, true, nil
	}
	return updated, false, nil
}
