package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArtifactKey_String tests key rendering
func TestArtifactKey_String(t *testing.T) {
	key := ArtifactKey{System: SystemConfluence, Type: TypePage, ID: "12345"}
	assert.Equal(t, "confluence/page/12345", key.String())
}

// TestArtifactKey_Validate tests key validation
func TestArtifactKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     ArtifactKey
		wantErr bool
	}{
		{"valid page", ArtifactKey{SystemConfluence, TypePage, "123"}, false},
		{"valid issue", ArtifactKey{SystemJira, TypeIssue, "PROJ-42"}, false},
		{"valid user", ArtifactKey{SystemJira, TypeUser, "acc:abc"}, false},
		{"unknown system", ArtifactKey{"bitbucket", TypePage, "123"}, true},
		{"unknown type", ArtifactKey{SystemConfluence, "comment", "123"}, true},
		{"empty id", ArtifactKey{SystemConfluence, TypePage, ""}, true},
		{"zero key", ArtifactKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestArtifactKey_IsZero tests zero detection
func TestArtifactKey_IsZero(t *testing.T) {
	assert.True(t, ArtifactKey{}.IsZero())
	assert.False(t, ArtifactKey{System: SystemJira}.IsZero())
}

// TestArtifact_Merge tests union-of-fields merge semantics: a stub
// created from a link keeps what it learned while gaining full metadata.
func TestArtifact_Merge(t *testing.T) {
	stub := &Artifact{
		Key:      ArtifactKey{SystemConfluence, TypePage, "123"},
		URL:      "https://acme.atlassian.net/wiki/spaces/ENG/pages/123/Onboarding",
		Metadata: map[string]any{"discovered_via": "link", "space": "ENG"},
	}
	require.False(t, stub.Fetched)

	stub.Merge(&Record{
		Key:   stub.Key,
		Title: "Onboarding",
		Metadata: map[string]any{
			"space":   "ENG",
			"version": 7,
		},
	})

	assert.True(t, stub.Fetched)
	assert.Equal(t, "Onboarding", stub.Title)
	// Absent incoming fields are preserved.
	assert.Equal(t, "https://acme.atlassian.net/wiki/spaces/ENG/pages/123/Onboarding", stub.URL)
	assert.Equal(t, "link", stub.Metadata["discovered_via"])
	// Incoming fields win on conflict.
	assert.Equal(t, 7, stub.Metadata["version"])
	assert.Equal(t, "ENG", stub.Metadata["space"])
}

// TestArtifact_MergeOverwritesStale tests that incoming values replace
// earlier ones field by field
func TestArtifact_MergeOverwritesStale(t *testing.T) {
	a := &Artifact{
		Key:      ArtifactKey{SystemJira, TypeIssue, "PROJ-1"},
		Title:    "stale title",
		URL:      "https://old.example.com",
		Metadata: map[string]any{"status": "Open"},
	}

	a.Merge(&Record{
		Key:      a.Key,
		Title:    "Fresh title",
		URL:      "https://acme.atlassian.net/browse/PROJ-1",
		Metadata: map[string]any{"status": "Done"},
	})

	assert.Equal(t, "Fresh title", a.Title)
	assert.Equal(t, "https://acme.atlassian.net/browse/PROJ-1", a.URL)
	assert.Equal(t, "Done", a.Metadata["status"])
}

// TestArtifact_MergeIntoNilMetadata tests merging into a stub without
// a metadata map
func TestArtifact_MergeIntoNilMetadata(t *testing.T) {
	a := &Artifact{Key: ArtifactKey{SystemConfluence, TypeSpace, "ENG"}}
	a.Merge(&Record{Key: a.Key, Metadata: map[string]any{"name": "Engineering"}})

	require.NotNil(t, a.Metadata)
	assert.Equal(t, "Engineering", a.Metadata["name"])
	assert.True(t, a.Fetched)
}

// TestArtifact_Clone tests deep copying
func TestArtifact_Clone(t *testing.T) {
	orig := &Artifact{
		Key:      ArtifactKey{SystemConfluence, TypePage, "123"},
		Title:    "Original",
		Metadata: map[string]any{"space": "ENG"},
	}

	dup := orig.Clone()
	dup.Metadata["space"] = "OPS"
	dup.Title = "Changed"

	assert.Equal(t, "Original", orig.Title)
	assert.Equal(t, "ENG", orig.Metadata["space"])
}

// TestSourceSystem_Valid tests source system validation
func TestSourceSystem_Valid(t *testing.T) {
	assert.True(t, SystemConfluence.Valid())
	assert.True(t, SystemJira.Valid())
	assert.False(t, SourceSystem("sharepoint").Valid())
	assert.False(t, SourceSystem("").Valid())
}

// TestArtifactType_Valid tests artifact type validation
func TestArtifactType_Valid(t *testing.T) {
	for _, typ := range []ArtifactType{TypeSpace, TypePage, TypeIssue, TypeAttachment, TypeUser} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, ArtifactType("comment").Valid())
}

// TestRelation_Valid tests relation validation
func TestRelation_Valid(t *testing.T) {
	for _, rel := range []Relation{RelationContains, RelationReferences,
		RelationAttachedTo, RelationAuthoredBy, RelationLinkedIssue} {
		assert.True(t, rel.Valid(), string(rel))
	}
	assert.False(t, Relation("mentions").Valid())
}
