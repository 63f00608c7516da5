package mapping

import (
	"context"
	"fmt"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/ebrains-prov/provenance-api/pkg/models"
)

// SizeUnit is the unit file sizes are stored in.
const SizeUnit = "byte"

const readScope = kg.ScopeInProgress

// FileToGraph builds a File node for files in a known repository and a
// LocalFile node for files without a network location.
func (m *Mapper) FileToGraph(ctx context.Context, store kg.Store, f models.File) (kg.Node, error) {
	var (
		description string
		format      *kg.Link
		size        *kg.QuantitativeValue
	)

	if f.Description != nil {
		description = *f.Description
	}

	if f.Format != nil {
		link, ok := m.vocab.ContentType(*f.Format)
		if !ok {
			return nil, fieldError("format", fmt.Errorf("%w: %q", ErrUnknownContentType, *f.Format))
		}

		format = link
	}

	hash, err := DigestToGraph(f.Hash)
	if err != nil {
		return nil, err
	}

	if f.Size != nil {
		qv, err := m.QuantityToGraph(float64(*f.Size), SizeUnit)
		if err != nil {
			return nil, fieldError("size", err)
		}

		size = &qv
	}

	if f.Location == nil || IsLocalPath(*f.Location) {
		local := &kg.LocalFile{
			Name:        f.FileName,
			Content:     description,
			Format:      format,
			Hash:        hash,
			StorageSize: size,
		}

		if f.Location != nil {
			local.Path = *f.Location
		}

		return local, nil
	}

	repo, err := m.RepositoryToGraph(ctx, store, *f.Location)
	if err != nil {
		return nil, err
	}

	return &kg.File{
		Name:           f.FileName,
		IRI:            *f.Location,
		Content:        description,
		Format:         format,
		Hash:           hash,
		StorageSize:    size,
		FileRepository: repo,
	}, nil
}

// RepositoryToGraph links to the repository holding url, reusing an existing
// repository node with the same IRI.
func (m *Mapper) RepositoryToGraph(ctx context.Context, store kg.Store, url string) (*kg.Link, error) {
	repo, err := InferRepository(url)
	if err != nil {
		return nil, err
	}

	existing, err := store.List(ctx, kg.ListOptions{
		Type:    kg.TypeFileRepository,
		Scope:   kg.ScopeAny,
		Filters: []kg.Filter{{Path: []string{"IRI"}, Value: repo.IRI}},
		Size:    1,
	})
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		return kg.To(existing[0]), nil
	}

	node := &kg.FileRepository{Name: repo.Name, IRI: repo.IRI}

	if repo.Host != "" {
		node.HostedBy, _ = m.vocab.Organization(repo.Host)
	}

	node.RepositoryType, _ = m.vocab.RepositoryType(repo.Type)

	return kg.To(node), nil
}

// FileFromGraph reads a File or LocalFile node.
func (m *Mapper) FileFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.File, error) {
	node, err := store.Resolve(ctx, link, readScope)
	if err != nil {
		return models.File{}, err
	}

	return m.fileFromNode(node)
}

func (m *Mapper) fileFromNode(node kg.Node) (models.File, error) {
	var (
		out     models.File
		content string
		format  *kg.Link
		size    *kg.QuantitativeValue
	)

	switch n := node.(type) {
	case *kg.File:
		out.FileName = n.Name
		out.Location = &n.IRI
		out.Hash = DigestFromGraph(n.Hash)
		content, format, size = n.Content, n.Format, n.StorageSize
	case *kg.LocalFile:
		out.FileName = n.Name
		if n.Path != "" {
			out.Location = &n.Path
		}

		out.Hash = DigestFromGraph(n.Hash)
		content, format, size = n.Content, n.Format, n.StorageSize
	default:
		return models.File{}, fmt.Errorf("%w: expected a file, got %s", ErrUnexpectedInput, kg.ShortType(node.Type()))
	}

	if content != "" {
		out.Description = &content
	}

	if format != nil {
		name, ok := m.vocab.Name(format)
		if !ok {
			return models.File{}, fmt.Errorf("%w: content type %s", ErrUnknownContentType, format.Target())
		}

		out.Format = &name
	}

	if size != nil {
		value, _, err := m.QuantityFromGraph(*size)
		if err != nil {
			return models.File{}, fieldError("size", err)
		}

		bytes := int64(value)
		out.Size = &bytes
	}

	return out, nil
}

// PersonToGraph links to the stored Person matching p, building a new one
// when there is none. A supplied ORCID is always carried by the linked
// Person; an ORCID already held by someone with other names is rejected.
func (m *Mapper) PersonToGraph(ctx context.Context, store kg.Store, p models.Person) (*kg.Link, error) {
	orcid := ""
	if p.ORCID != nil {
		orcid = *p.ORCID
	}

	existing, err := kg.FindPerson(ctx, store, p.GivenName, p.FamilyName, orcid)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.GivenName != p.GivenName || existing.FamilyName != p.FamilyName {
			return nil, fieldError("orcid", fmt.Errorf("%w: %s is held by %s", ErrORCIDConflict, orcid, existing.FullName()))
		}

		return kg.To(existing), nil
	}

	person := &kg.Person{GivenName: p.GivenName, FamilyName: p.FamilyName}
	if orcid != "" {
		person.DigitalIdentifiers = []*kg.Link{kg.To(&kg.ORCID{Identifier: orcid})}
	}

	return kg.To(person), nil
}

func (m *Mapper) PersonFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.Person, error) {
	person, err := kg.ResolveAs[*kg.Person](ctx, store, link, readScope)
	if err != nil {
		return models.Person{}, err
	}

	out := models.Person{GivenName: person.GivenName, FamilyName: person.FamilyName}

	orcid, err := findORCID(ctx, store, person)
	if err != nil {
		return models.Person{}, err
	}

	out.ORCID = orcid

	return out, nil
}

func findORCID(ctx context.Context, store kg.Store, person *kg.Person) (*string, error) {
	orcid, err := kg.ORCIDOf(ctx, store, person, readScope)
	if err != nil || orcid == "" {
		return nil, err
	}

	return &orcid, nil
}

// reference resolves the instance an identifier in a submitted record points
// at. A missing instance, or one of another type, is reported against field.
func reference[T kg.Node](ctx context.Context, store kg.Store, field, id, typ string) (*kg.Link, T, error) {
	link := kg.Ref(id, typ)

	node, err := kg.ResolveAs[T](ctx, store, link, readScope)
	if kg.IsNotFound(err) || kg.IsUnexpectedType(err) {
		return nil, node, fieldError(field, fmt.Errorf("%w: %s %s", ErrNoSuchReference, kg.ShortType(typ), id))
	}

	if err != nil {
		return nil, node, err
	}

	return link, node, nil
}

// SoftwareVersionToGraph links to the software version with the given
// identifier when its name and version match the submitted ones. Otherwise
// it links to the version with the same name and version, or to a new one.
func (m *Mapper) SoftwareVersionToGraph(ctx context.Context, store kg.Store, sv models.SoftwareVersion) (*kg.Link, error) {
	if sv.ID != nil {
		link, stored, err := reference[*kg.SoftwareVersion](ctx, store, "software.id", *sv.ID, kg.TypeSoftwareVersion)
		if err != nil {
			return nil, err
		}

		if stored.Name == sv.SoftwareName && stored.VersionIdentifier == sv.SoftwareVersion {
			return link, nil
		}
	}

	existing, err := store.List(ctx, kg.ListOptions{
		Type:  kg.TypeSoftwareVersion,
		Scope: kg.ScopeAny,
		Filters: []kg.Filter{
			{Path: []string{"name"}, Value: sv.SoftwareName},
			{Path: []string{"versionIdentifier"}, Value: sv.SoftwareVersion},
		},
		Size: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		return kg.To(existing[0]), nil
	}

	return kg.To(kg.NewSoftwareVersion(sv.SoftwareName, sv.SoftwareVersion, kg.Relax("alias"))), nil
}

func (m *Mapper) SoftwareVersionFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.SoftwareVersion, error) {
	sv, err := kg.ResolveAs[*kg.SoftwareVersion](ctx, store, link, readScope)
	if err != nil {
		return models.SoftwareVersion{}, err
	}

	return softwareVersionFromNode(sv), nil
}

func softwareVersionFromNode(sv *kg.SoftwareVersion) models.SoftwareVersion {
	id := sv.UUID()

	return models.SoftwareVersion{
		ID:              &id,
		SoftwareName:    sv.Name,
		SoftwareVersion: sv.VersionIdentifier,
	}
}

// EnvironmentToGraph builds the environment node from the submitted fields.
// An environment given by identifier must exist; it is linked as stored when
// its content equals the submitted one, and replaced by a new node otherwise.
func (m *Mapper) EnvironmentToGraph(ctx context.Context, store kg.Store, env models.ComputationalEnvironment) (*kg.Link, error) {
	hardware, ok := m.vocab.Hardware(env.Hardware)
	if !ok {
		return nil, fieldError("environment.hardware", fmt.Errorf("%w: %q", ErrUnknownHardware, env.Hardware))
	}

	node := &kg.Environment{Name: env.Name, Hardware: hardware}

	if env.Description != nil {
		node.Description = *env.Description
	}

	for _, ps := range env.Configuration {
		set, err := m.ParameterSetToGraph(ps, "")
		if err != nil {
			return nil, fieldError("environment.configuration", err)
		}

		node.Configuration = append(node.Configuration, set)
	}

	for _, sv := range env.Software {
		link, err := m.SoftwareVersionToGraph(ctx, store, sv)
		if err != nil {
			return nil, fieldError("environment", err)
		}

		node.Software = append(node.Software, link)
	}

	if env.ID == nil {
		return kg.To(node), nil
	}

	link, _, err := reference[*kg.Environment](ctx, store, "environment.id", *env.ID, kg.TypeEnvironment)
	if err != nil {
		return nil, err
	}

	stored, err := m.EnvironmentFromGraph(ctx, link, store)
	if err != nil {
		return nil, err
	}

	// compare against the canonical hardware name
	submitted := env
	submitted.Hardware, _ = m.vocab.Name(hardware)

	if sameEnvironment(stored, submitted) {
		return link, nil
	}

	return kg.To(node), nil
}

// sameEnvironment compares environments by content, ignoring identifiers.
// Configuration and software are compared in order.
func sameEnvironment(a, b models.ComputationalEnvironment) bool {
	if a.Name != b.Name || a.Hardware != b.Hardware || deref(a.Description) != deref(b.Description) {
		return false
	}

	if len(a.Configuration) != len(b.Configuration) || len(a.Software) != len(b.Software) {
		return false
	}

	for i := range a.Configuration {
		x, y := a.Configuration[i], b.Configuration[i]
		if x.Identifier() != y.Identifier() || deref(x.Description) != deref(y.Description) {
			return false
		}
	}

	for i := range a.Software {
		x, y := a.Software[i], b.Software[i]
		if x.SoftwareName != y.SoftwareName || x.SoftwareVersion != y.SoftwareVersion {
			return false
		}
	}

	return true
}

func (m *Mapper) EnvironmentFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.ComputationalEnvironment, error) {
	env, err := kg.ResolveAs[*kg.Environment](ctx, store, link, readScope)
	if err != nil {
		return models.ComputationalEnvironment{}, err
	}

	id := env.UUID()
	out := models.ComputationalEnvironment{
		ID:            &id,
		Name:          env.Name,
		Configuration: make([]models.ParameterSet, 0, len(env.Configuration)),
		Software:      make([]models.SoftwareVersion, 0, len(env.Software)),
	}

	if env.Description != "" {
		out.Description = &env.Description
	}

	if env.Hardware != nil {
		name, ok := m.vocab.Name(env.Hardware)
		if !ok {
			return out, fmt.Errorf("%w: hardware %s", ErrUnknownHardware, env.Hardware.Target())
		}

		out.Hardware = name
	}

	for _, ps := range env.Configuration {
		set, err := m.ParameterSetFromGraph(ps)
		if err != nil {
			return out, fieldError("configuration", err)
		}

		out.Configuration = append(out.Configuration, set)
	}

	for _, l := range env.Software {
		sv, err := m.SoftwareVersionFromGraph(ctx, l, store)
		if err != nil {
			return out, err
		}

		out.Software = append(out.Software, sv)
	}

	return out, nil
}

// LaunchConfigurationToGraph builds the launch configuration node. Without a
// name, the configuration and its environment variables are labelled by
// their content identifiers.
func (m *Mapper) LaunchConfigurationToGraph(lc models.LaunchConfiguration) (*kg.Link, error) {
	node := &kg.LaunchConfiguration{
		Executable: lc.Executable,
		Arguments:  lc.Arguments,
	}

	if lc.Name != nil {
		node.Name = *lc.Name
		node.LookupLabel = *lc.Name
	} else {
		node.LookupLabel = "LaunchConfiguration-" + lc.Identifier()
	}

	if lc.Description != nil {
		node.Description = *lc.Description
	}

	if lc.EnvironmentVariables != nil {
		label := "EnvironmentVariables-" + lc.EnvironmentVariables.Identifier()
		if lc.EnvironmentVariables.Description != nil {
			label = *lc.EnvironmentVariables.Description
		}

		set, err := m.ParameterSetToGraph(*lc.EnvironmentVariables, label)
		if err != nil {
			return nil, fieldError("launch_config.environment_variables", err)
		}

		node.EnvironmentVariables = &set
	}

	return kg.To(node), nil
}

func (m *Mapper) LaunchConfigurationFromGraph(ctx context.Context, link *kg.Link, store kg.Store) (models.LaunchConfiguration, error) {
	lc, err := kg.ResolveAs[*kg.LaunchConfiguration](ctx, store, link, readScope)
	if err != nil {
		return models.LaunchConfiguration{}, err
	}

	out := models.LaunchConfiguration{
		Executable: lc.Executable,
		Arguments:  lc.Arguments,
	}

	if out.Arguments == nil {
		out.Arguments = []string{}
	}

	if lc.Name != "" {
		out.Name = &lc.Name
	}

	if lc.Description != "" {
		out.Description = &lc.Description
	}

	if lc.EnvironmentVariables != nil {
		ps, err := m.ParameterSetFromGraph(*lc.EnvironmentVariables)
		if err != nil {
			return out, fieldError("environment_variables", err)
		}

		out.EnvironmentVariables = &ps
	}

	return out, nil
}
