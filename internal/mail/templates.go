package mail

import (
	"bytes"
	"text/template"
)

var (
	projectStatusTmpl = template.Must(template.New("project_status").Parse(
		`Hello {{.Name}},

The status of project "{{.Project}}" changed to {{.Status}}.

You are receiving this because you are a member of the project.
`))

	projectDeletedTmpl = template.Must(template.New("project_deleted").Parse(
		`Hello {{.Name}},

Project "{{.Project}}" has been deleted. Its tasks and memberships were removed with it.
`))

	projectAssignmentTmpl = template.Must(template.New("project_assignment").Parse(
		`Hello {{.Name}},

You have been added to project "{{.Project}}" as {{.Role}}.
`))

	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`Hello {{.Name}},

An account was created for you on Flow. Sign in with {{.Email}}.
`))

	passwordChangedTmpl = template.Must(template.New("password_changed").Parse(
		`Hello {{.Name}},

The password for your Flow account {{.Email}} was changed. If this was not you, contact your administrator.
`))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func ProjectStatusChanged(to, name, project, status string) Message {
	return Message{
		To:      []string{to},
		Subject: "Project status updated: " + project,
		Body: render(projectStatusTmpl, map[string]string{
			"Name": displayName(name), "Project": project, "Status": status,
		}),
	}
}

func ProjectDeleted(to, name, project string) Message {
	return Message{
		To:      []string{to},
		Subject: "Project deleted: " + project,
		Body: render(projectDeletedTmpl, map[string]string{
			"Name": displayName(name), "Project": project,
		}),
	}
}

func ProjectAssignment(to, name, project, role string) Message {
	return Message{
		To:      []string{to},
		Subject: "You've been added to a project: " + project,
		Body: render(projectAssignmentTmpl, map[string]string{
			"Name": displayName(name), "Project": project, "Role": role,
		}),
	}
}

func Welcome(to, name string) Message {
	return Message{
		To:      []string{to},
		Subject: "Welcome to Flow",
		Body: render(welcomeTmpl, map[string]string{
			"Name": displayName(name), "Email": to,
		}),
	}
}

func PasswordChanged(to, name string) Message {
	return Message{
		To:      []string{to},
		Subject: "Your Flow password was changed",
		Body: render(passwordChangedTmpl, map[string]string{
			"Name": displayName(name), "Email": to,
		}),
	}
}
