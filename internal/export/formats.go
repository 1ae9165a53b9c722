package export

import (
	"encoding/json"
	"fmt"
	"time"

	"credtrust/internal/credential"
)

// buildPayload renders a credential into the requested format. Every format
// is a pure transformation of the stored record; none of them re-derive or
// alter integrity fields.
func buildPayload(c credential.Credential, format Format) (json.RawMessage, error) {
	var payload any
	switch format {
	case FormatOpenBadges:
		payload = openBadgesPayload(c)
	case FormatEuropass:
		payload = europassPayload(c)
	case FormatJSONLD:
		payload = jsonLDPayload(c)
	case FormatPrint:
		payload = printPayload(c)
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", format, err)
	}
	return data, nil
}

// openBadgesPayload renders an Open Badges v2 style assertion.
func openBadgesPayload(c credential.Credential) map[string]any {
	assertion := map[string]any{
		"@context": "https://w3id.org/openbadges/v2",
		"type":     "Assertion",
		"id":       "urn:uuid:" + c.ID.String(),
		"recipient": map[string]any{
			"type":     "id",
			"identity": c.RecipientID.String(),
			"hashed":   false,
		},
		"badge": map[string]any{
			"type":        "BadgeClass",
			"name":        c.Title,
			"description": c.Description,
			"tags":        c.Skills,
			"issuer": map[string]any{
				"type": "Profile",
				"id":   c.IssuerID.String(),
			},
		},
		"issuedOn": c.IssuedDate.UTC().Format(time.RFC3339),
		"verification": map[string]any{
			"type": "HostedBadge",
		},
		"evidence": map[string]any{
			"narrative": "Integrity hash " + c.Hash,
		},
	}
	if c.ExpiryDate != nil {
		assertion["expires"] = c.ExpiryDate.UTC().Format(time.RFC3339)
	}
	if c.Status == credential.StatusRevoked {
		assertion["revoked"] = true
		assertion["revocationReason"] = c.RevocationReason
	}
	return assertion
}

// europassPayload renders a Europass style learning achievement.
func europassPayload(c credential.Credential) map[string]any {
	achievement := map[string]any{
		"type":  "LearningAchievement",
		"title": c.Title,
		"description": c.Description,
		"identifier": map[string]any{
			"schemeID": "credtrust",
			"value":    c.ID.String(),
		},
		"wasAwardedBy": map[string]any{
			"awardingBody": c.IssuerID.String(),
			"awardingDate": c.IssuedDate.UTC().Format(time.RFC3339),
		},
		"specifiedBy": map[string]any{
			"learningOutcome": c.Skills,
			"learningOpportunityType": string(c.Type),
		},
		"credentialSubject": c.RecipientID.String(),
	}
	if c.ExpiryDate != nil {
		achievement["expiryDate"] = c.ExpiryDate.UTC().Format(time.RFC3339)
	}
	return achievement
}

// jsonLDPayload renders a generic verifiable-credential style document.
func jsonLDPayload(c credential.Credential) map[string]any {
	doc := map[string]any{
		"@context":     []string{"https://www.w3.org/2018/credentials/v1"},
		"type":         []string{"VerifiableCredential"},
		"id":           "urn:uuid:" + c.ID.String(),
		"issuer":       c.IssuerID.String(),
		"issuanceDate": c.IssuedDate.UTC().Format(time.RFC3339),
		"credentialSubject": map[string]any{
			"id":             c.RecipientID.String(),
			"credentialType": string(c.Type),
			"title":          c.Title,
			"description":    c.Description,
			"skills":         c.Skills,
		},
		"proof": map[string]any{
			"type":            "IntegrityDigest",
			"hash":            c.Hash,
			"transactionHash": c.TransactionHash,
			"blockNumber":     c.BlockNumber,
		},
		"credentialStatus": map[string]any{
			"status": string(c.Status),
		},
	}
	if c.ExpiryDate != nil {
		doc["expirationDate"] = c.ExpiryDate.UTC().Format(time.RFC3339)
	}
	return doc
}

// printPayload renders a flat template payload for print rendering.
func printPayload(c credential.Credential) map[string]any {
	return map[string]any{
		"template": "certificate",
		"fields": map[string]any{
			"title":       c.Title,
			"description": c.Description,
			"type":        string(c.Type),
			"skills":      c.Skills,
			"issuedDate":  c.IssuedDate.UTC().Format("January 2, 2006"),
			"hash":        c.Hash,
			"status":      string(c.Status),
		},
	}
}
