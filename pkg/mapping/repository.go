package mapping

import (
	"regexp"
	"strings"
)

// Repository is the storage location inferred from a file URL.
type Repository struct {
	IRI  string
	Name string
	// Host is the short name of the hosting organization, empty when
	// unknown.
	Host string
	// Type is the repository type vocabulary name.
	Type string
}

type repositoryRule struct {
	pattern *regexp.Regexp
	build   func(m []string) Repository
}

// Rules are tried in order; the first match wins.
var repositoryRules = []repositoryRule{
	{
		pattern: regexp.MustCompile(`^https://object\.cscs\.ch/v1/(AUTH_\w+)/([^/?#]+)`),
		build: func(m []string) Repository {
			return Repository{
				IRI:  "https://object.cscs.ch/v1/" + m[1] + "/" + m[2],
				Name: m[2],
				Host: "EBRAINS",
				Type: "Swift repository",
			}
		},
	},
	{
		pattern: regexp.MustCompile(`^https://data-proxy\.ebrains\.eu/api/(?:v1/)?(?:public/)?buckets/([^/?#]+)`),
		build: func(m []string) Repository {
			return Repository{
				IRI:  "https://data-proxy.ebrains.eu/api/v1/buckets/" + m[1],
				Name: m[1],
				Host: "EBRAINS",
				Type: "bucket",
			}
		},
	},
	{
		pattern: regexp.MustCompile(`^https://gpfs-proxy\.brainsimulation\.eu/([^/?#]+)/([^/?#]+)`),
		build: func(m []string) Repository {
			return Repository{
				IRI:  "https://gpfs-proxy.brainsimulation.eu/" + m[1] + "/" + m[2],
				Name: m[1] + "/" + m[2],
				Host: "EBRAINS",
				Type: "GPFS repository",
			}
		},
	},
	{
		pattern: regexp.MustCompile(`^https://drive\.ebrains\.eu/(lib|f|d)/([\w-]+)`),
		build: func(m []string) Repository {
			return Repository{
				IRI:  "https://drive.ebrains.eu/" + m[1] + "/" + m[2],
				Name: m[2],
				Host: "EBRAINS",
				Type: "Seafile repository",
			}
		},
	},
	{
		pattern: regexp.MustCompile(`^https://gitlab\.ebrains\.eu/([^?#]+?)(?:\.git)?(?:/-/.*)?/?$`),
		build: func(m []string) Repository {
			return Repository{
				IRI:  "https://gitlab.ebrains.eu/" + m[1],
				Name: m[1],
				Host: "EBRAINS",
				Type: "GitLab repository",
			}
		},
	},
	{
		pattern: regexp.MustCompile(`^https://github\.com/([^/?#]+)/([^/?#]+?)(?:\.git)?(?:[/?#].*)?$`),
		build:   githubRepository,
	},
	{
		pattern: regexp.MustCompile(`^https://raw\.githubusercontent\.com/([^/?#]+)/([^/?#]+)/`),
		build:   githubRepository,
	},
}

func githubRepository(m []string) Repository {
	return Repository{
		IRI:  "https://github.com/" + m[1] + "/" + m[2],
		Name: m[1] + "/" + m[2],
		Host: "GitHub",
		Type: "GitHub repository",
	}
}

// InferRepository returns the repository holding the file at url.
func InferRepository(url string) (Repository, error) {
	for _, rule := range repositoryRules {
		if m := rule.pattern.FindStringSubmatch(url); m != nil {
			return rule.build(m), nil
		}
	}

	return Repository{}, &FieldError{Field: "location", Err: ErrUnsupportedRepository}
}

func GetRepositoryIRI(url string) (string, error) {
	repo, err := InferRepository(url)
	return repo.IRI, err
}

func GetRepositoryName(url string) (string, error) {
	repo, err := InferRepository(url)
	return repo.Name, err
}

func GetRepositoryHost(url string) (string, error) {
	repo, err := InferRepository(url)
	return repo.Host, err
}

func GetRepositoryType(url string) (string, error) {
	repo, err := InferRepository(url)
	return repo.Type, err
}

// IsLocalPath reports whether location names a file on a local filesystem
// rather than in a network repository.
func IsLocalPath(location string) bool {
	if strings.HasPrefix(location, "file://") {
		return true
	}

	return !strings.Contains(location, "://")
}
