package access

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/hugh/flow/internal/database/models"
)

//go:embed model.conf
var modelText string

type Kind string

const (
	KindOrganization Kind = "organization"
	KindMember       Kind = "member"
	KindProject      Kind = "project"
	KindTask         Kind = "task"
	KindWebhook      Kind = "webhook"
	KindSettings     Kind = "settings"
	KindUser         Kind = "user"
)

type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionListAll      Action = "list_all"
	ActionUpdateStatus Action = "update_status"
	ActionAddMember    Action = "add_member"
	ActionReadMembers  Action = "read_members"
	ActionFeedback     Action = "feedback"
	ActionAssign       Action = "assign"
	ActionComment      Action = "comment"
	ActionMeeting      Action = "request_meeting"
	ActionReadStats    Action = "read_stats"
	ActionAssignRoles  Action = "assign_roles"
)

// Resource names the object of a decision. A zero ID asks about the
// collection rather than a specific row.
type Resource struct {
	Kind Kind
	ID   int64
}

func Organization(id int64) Resource { return Resource{Kind: KindOrganization, ID: id} }
func Members(orgID int64) Resource   { return Resource{Kind: KindMember, ID: orgID} }
func Project(id int64) Resource      { return Resource{Kind: KindProject, ID: id} }
func Task(id int64) Resource         { return Resource{Kind: KindTask, ID: id} }
func Webhook(orgID int64) Resource   { return Resource{Kind: KindWebhook, ID: orgID} }
func Settings() Resource             { return Resource{Kind: KindSettings} }
func Users() Resource                { return Resource{Kind: KindUser} }

var (
	allRoles = []string{
		models.RoleSuperAdmin, models.RoleOrgAdmin, models.RoleProjectManager,
		models.RoleTeamMember, models.RoleClient,
	}
	staffRoles   = []string{models.RoleSuperAdmin, models.RoleOrgAdmin, models.RoleProjectManager, models.RoleTeamMember}
	managerRoles = []string{models.RoleSuperAdmin, models.RoleOrgAdmin, models.RoleProjectManager}
	adminRoles   = []string{models.RoleSuperAdmin, models.RoleOrgAdmin}
	superRoles   = []string{models.RoleSuperAdmin}
)

type grant struct {
	kind    Kind
	actions []Action
	roles   []string
}

var grants = []grant{
	{KindOrganization, []Action{ActionCreate, ActionUpdate, ActionDelete, ActionListAll}, superRoles},
	{KindOrganization, []Action{ActionRead}, staffRoles},
	{KindMember, []Action{ActionRead}, managerRoles},
	{KindMember, []Action{ActionCreate, ActionDelete}, adminRoles},
	{KindMember, []Action{ActionReadStats}, managerRoles},
	{KindProject, []Action{ActionCreate, ActionUpdate, ActionAddMember}, managerRoles},
	{KindProject, []Action{ActionUpdateStatus, ActionDelete}, adminRoles},
	{KindProject, []Action{ActionRead}, allRoles},
	{KindProject, []Action{ActionReadMembers}, staffRoles},
	{KindProject, []Action{ActionFeedback}, []string{models.RoleClient}},
	{KindProject, []Action{ActionMeeting}, allRoles},
	{KindTask, []Action{ActionCreate, ActionUpdate, ActionUpdateStatus, ActionComment}, staffRoles},
	{KindTask, []Action{ActionRead}, allRoles},
	{KindTask, []Action{ActionAssign, ActionDelete}, managerRoles},
	{KindWebhook, []Action{ActionRead, ActionUpdate}, adminRoles},
	{KindSettings, []Action{ActionRead, ActionUpdate}, superRoles},
	{KindUser, []Action{ActionRead, ActionUpdate, ActionDelete, ActionAssignRoles}, adminRoles},
	{KindUser, []Action{ActionCreate}, superRoles},
}

// Policy answers can(actor, action, resource) by combining the role table
// with the actor's visibility scope.
type Policy struct {
	resolver *Resolver
	enforcer *casbin.SyncedEnforcer
	logger   *slog.Logger
}

func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, fmt.Errorf("seed policies: %w", err)
	}
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var rules [][]string
	for _, g := range grants {
		for _, role := range g.roles {
			for _, action := range g.actions {
				rules = append(rules, []string{role, string(g.kind), string(action)})
			}
		}
	}
	_, err := enforcer.AddPolicies(rules)
	return err
}

func NewPolicy(resolver *Resolver, logger *slog.Logger) (*Policy, error) {
	enforcer, err := NewEnforcer()
	if err != nil {
		return nil, err
	}
	return &Policy{resolver: resolver, enforcer: enforcer, logger: logger}, nil
}

// Can reports whether actor may perform action on res. It never grants
// anything to an inactive actor.
func (p *Policy) Can(ctx context.Context, actor Actor, action Action, res Resource) (bool, error) {
	if !actor.IsActive || actor.ID == 0 {
		return false, nil
	}

	allowed, err := p.roleAllows(actor, action, res.Kind)
	if err != nil || !allowed {
		return false, err
	}
	if res.ID == 0 || res.Kind == KindSettings || res.Kind == KindUser {
		return true, nil
	}
	if actor.PrimaryRole() == models.RoleSuperAdmin && adminObject(res.Kind) {
		return true, nil
	}

	scope, err := p.resolver.Resolve(ctx, actor)
	if err != nil {
		return false, err
	}
	return InScope(scope, res), nil
}

// Authorize is Can returning ErrAccessDenied on a negative answer.
func (p *Policy) Authorize(ctx context.Context, actor Actor, action Action, res Resource) error {
	ok, err := p.Can(ctx, actor, action, res)
	if err != nil {
		return err
	}
	if !ok {
		p.logger.Debug("access denied",
			"user_id", actor.ID,
			"action", action,
			"kind", res.Kind,
			"resource_id", res.ID,
		)
		return ErrAccessDenied
	}
	return nil
}

// RoleAllows consults the role table only.
func (p *Policy) RoleAllows(actor Actor, action Action, kind Kind) bool {
	ok, err := p.roleAllows(actor, action, kind)
	return err == nil && ok
}

func (p *Policy) roleAllows(actor Actor, action Action, kind Kind) (bool, error) {
	for _, role := range actor.Roles {
		ok, err := p.enforcer.Enforce(role, string(kind), string(action))
		if err != nil {
			return false, fmt.Errorf("enforce: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// InScope checks a single resource against a resolved scope.
func InScope(scope *Scope, res Resource) bool {
	switch res.Kind {
	case KindOrganization, KindMember, KindWebhook:
		return scope.HasOrganization(res.ID)
	case KindProject:
		return scope.HasProject(res.ID)
	case KindTask:
		return scope.HasTask(res.ID)
	default:
		return false
	}
}

func adminObject(kind Kind) bool {
	switch kind {
	case KindOrganization, KindMember, KindWebhook, KindSettings:
		return true
	}
	return false
}
