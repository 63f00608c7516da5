// Package testutil provides vocabularies, stores and record builders for
// tests.
package testutil

import (
	"testing"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/kg/file"
	"github.com/ebrains-prov/provenance-api/pkg/vocab"
	"github.com/google/uuid"
)

// Account is the user test stores act for.
var Account = kg.Account{Username: "adavison", GivenName: "Andrew", FamilyName: "Davison"}

var terms = map[string][]string{
	kg.TypeContentType: {
		"application/json",
		"text/plain",
		"application/vnd.commonworkflowlanguage.workflow",
		"application/vnd.commonworkflowlanguage.cmdline",
		"application/vnd.snakemake.workflowrecipe",
		"text/x-python",
		"application/x-ipynb+json",
	},
	kg.TypeUnitOfMeasurement: {"byte", "MOhm", "mV", "hour", "core-hour", "gigabyte"},
	kg.TypeHardwareSystem:    {"spinnaker", "pc", "jureca", "pizdaint"},
	kg.TypeFileRepositoryType: {
		"Swift repository",
		"bucket",
		"GPFS repository",
		"Seafile repository",
		"GitLab repository",
		"GitHub repository",
	},
	kg.TypeActionStatusType: {"potential", "active", "completed", "failed"},
}

var organizations = map[string]string{
	"EBRAINS": "EBRAINS",
	"GitHub":  "GitHub Inc.",
}

// TermID returns the fixed identifier of a vocabulary term.
func TermID(typ, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(typ+"#"+name)).String()
}

// Vocab returns a registry holding the terms used across the tests.
func Vocab() *vocab.Registry {
	return vocab.New(VocabNodes()...)
}

// VocabNodes returns the vocabulary terms as graph nodes, for seeding stores.
func VocabNodes() []kg.Node {
	var nodes []kg.Node

	for typ, names := range terms {
		for _, name := range names {
			nodes = append(nodes, kg.NewTerm(typ, name, kg.WithID(TermID(typ, name))))
		}
	}

	for short, full := range organizations {
		org := &kg.Organization{FullName: full, ShortName: short}
		org.ID = kg.URIFromUUID(TermID(kg.TypeOrganization, short))
		nodes = append(nodes, org)
	}

	return nodes
}

// NewConnector returns a file-backed connector rooted in a temporary
// directory.
func NewConnector(t *testing.T) *file.Connector {
	t.Helper()

	return file.NewConnector(t.TempDir(), kg.StaticAccount(Account))
}

// NewStore returns a store acting for Account.
func NewStore(t *testing.T) kg.Store {
	t.Helper()

	return NewConnector(t).ForToken("token")
}
