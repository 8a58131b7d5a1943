package services

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/tidwall/sjson"

	"github.com/aiguard/console/internal/apierror"
)

const projectsPath = "/_api/projects"

// ProjectService manages projects and their keys and members.
type ProjectService struct {
	d Doer
}

func projectPath(id string, rest ...string) string {
	p := projectsPath + "/" + segment(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// =============================================================================
// Projects
// =============================================================================

// List returns the caller's projects.
func (s *ProjectService) List(ctx context.Context) ([]Project, error) {
	var raw json.RawMessage
	if err := s.d.Do(ctx, get(projectsPath, nil), &raw); err != nil {
		return nil, err
	}
	return decodeList[Project](raw, "projects")
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id string) (*Project, error) {
	if err := requireID("projectId", id); err != nil {
		return nil, err
	}
	var p Project
	if err := s.d.Do(ctx, get(projectPath(id), nil), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if err := ValidateProjectName(req.Name); err != nil {
		return nil, err
	}
	if err := ValidateProjectDescription(req.Description); err != nil {
		return nil, err
	}
	var p Project
	if err := s.d.Do(ctx, post(projectsPath, req), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update sends only the fields set in upd.
func (s *ProjectService) Update(ctx context.Context, id string, upd ProjectUpdate) (*Project, error) {
	if err := requireID("projectId", id); err != nil {
		return nil, err
	}

	body := []byte(`{}`)
	var err error
	if upd.Name != nil {
		if err := ValidateProjectName(*upd.Name); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, "name", *upd.Name); err != nil {
			return nil, sparseError(err)
		}
	}
	if upd.Description != nil {
		if err := ValidateProjectDescription(*upd.Description); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, "description", *upd.Description); err != nil {
			return nil, sparseError(err)
		}
	}
	if upd.Name == nil && upd.Description == nil {
		return nil, apierror.Validation("project", "Nothing to update")
	}

	var p Project
	if err := s.d.Do(ctx, put(projectPath(id), json.RawMessage(body)), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := requireID("projectId", id); err != nil {
		return err
	}
	return s.d.Do(ctx, del(projectPath(id)), nil)
}

// Usage returns the usage report. Empty query fields are omitted.
func (s *ProjectService) Usage(ctx context.Context, id string, q UsageQuery) (*UsageStats, error) {
	if err := requireID("projectId", id); err != nil {
		return nil, err
	}
	params := url.Values{}
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}
	if q.GroupBy != "" {
		params.Set("groupBy", q.GroupBy)
	}

	var stats UsageStats
	if err := s.d.Do(ctx, get(projectPath(id, "usage"), params), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Quota returns the daily and monthly quota state.
func (s *ProjectService) Quota(ctx context.Context, id string) (*QuotaStatus, error) {
	if err := requireID("projectId", id); err != nil {
		return nil, err
	}
	var qs QuotaStatus
	if err := s.d.Do(ctx, get(projectPath(id, "quota"), nil), &qs); err != nil {
		return nil, err
	}
	return &qs, nil
}

// =============================================================================
// Provider keys
// =============================================================================

// ListKeys returns the provider keys of a project.
func (s *ProjectService) ListKeys(ctx context.Context, projectID string) ([]APIKey, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.d.Do(ctx, get(projectPath(projectID, "keys"), nil), &raw); err != nil {
		return nil, err
	}
	return decodeList[APIKey](raw, "keys")
}

// AddKey stores a provider key. The secret is never returned.
func (s *ProjectService) AddKey(ctx context.Context, projectID string, req AddKeyRequest) (*APIKey, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	if err := ValidateKeyRequest(req); err != nil {
		return nil, err
	}
	var k APIKey
	if err := s.d.Do(ctx, post(projectPath(projectID, "keys"), req), &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// UpdateKey renames or toggles a key. Only set fields are sent.
func (s *ProjectService) UpdateKey(ctx context.Context, projectID, keyID string, upd KeyUpdate) (*APIKey, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	if err := requireID("keyId", keyID); err != nil {
		return nil, err
	}

	body := []byte(`{}`)
	var err error
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, apierror.Validation("name", "Key name is required")
		}
		if body, err = sjson.SetBytes(body, "name", *upd.Name); err != nil {
			return nil, sparseError(err)
		}
	}
	if upd.Status != nil {
		if err := validateKeyStatus(*upd.Status); err != nil {
			return nil, err
		}
		if body, err = sjson.SetBytes(body, "status", string(*upd.Status)); err != nil {
			return nil, sparseError(err)
		}
	}
	if upd.Name == nil && upd.Status == nil {
		return nil, apierror.Validation("key", "Nothing to update")
	}

	var k APIKey
	if err := s.d.Do(ctx, put(projectPath(projectID, "keys", segment(keyID)), json.RawMessage(body)), &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// DeleteKey removes a provider key.
func (s *ProjectService) DeleteKey(ctx context.Context, projectID, keyID string) error {
	if err := requireID("projectId", projectID); err != nil {
		return err
	}
	if err := requireID("keyId", keyID); err != nil {
		return err
	}
	return s.d.Do(ctx, del(projectPath(projectID, "keys", segment(keyID))), nil)
}

// =============================================================================
// Members
// =============================================================================

// ListMembers returns the members of a project.
func (s *ProjectService) ListMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.d.Do(ctx, get(projectPath(projectID, "members"), nil), &raw); err != nil {
		return nil, err
	}
	return decodeList[ProjectMember](raw, "members")
}

// AddMember invites a user by email.
func (s *ProjectService) AddMember(ctx context.Context, projectID string, req AddMemberRequest) (*ProjectMember, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := ValidateRole(req.Role); err != nil {
		return nil, err
	}
	var m ProjectMember
	if err := s.d.Do(ctx, post(projectPath(projectID, "members"), req), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMember changes a member's role.
func (s *ProjectService) UpdateMember(ctx context.Context, projectID, memberID string, role Role) (*ProjectMember, error) {
	if err := requireID("projectId", projectID); err != nil {
		return nil, err
	}
	if err := requireID("memberId", memberID); err != nil {
		return nil, err
	}
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	body := struct {
		Role Role `json:"role"`
	}{role}

	var m ProjectMember
	if err := s.d.Do(ctx, put(projectPath(projectID, "members", segment(memberID)), body), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMember removes a member from a project.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, memberID string) error {
	if err := requireID("projectId", projectID); err != nil {
		return err
	}
	if err := requireID("memberId", memberID); err != nil {
		return err
	}
	return s.d.Do(ctx, del(projectPath(projectID, "members", segment(memberID))), nil)
}

func sparseError(err error) error {
	return apierror.New(apierror.TypeUnknown, "failed to build request body").Wrap(err)
}
