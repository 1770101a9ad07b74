package web

import (
	"net/url"
	"strings"
	"testing"

	"taskroom/internal/adapters/backend/backendtest"
)

// assignedTask has admin create a task for the user behind email and returns its id.
func (a *app) assignedTask(admin *browser, title, email string) string {
	a.t.Helper()
	admin.post("/admin/tasks", url.Values{"title": {title}, "assigned_to": {a.backend.UserIDByEmail(email)}})
	for _, r := range a.backend.Rows(backendtest.TableTasks) {
		if r["title"] == title {
			return r["id"].(string)
		}
	}
	a.t.Fatalf("task %q not created", title)
	return ""
}

func taskStatus(a *app, id string) any {
	row, _ := a.backend.Row(backendtest.TableTasks, id)
	return row["status"]
}

func TestUserDashboard_Empty(t *testing.T) {
	a := newApp(t)
	admin, code := a.adminWithRoom("ann")
	u := a.approvedUser(admin, "bob", code)

	page := u.get("/user/dashboard")
	if !strings.Contains(page.body, "No tasks assigned to you yet.") {
		t.Error("missing empty state")
	}
	if strings.Contains(page.body, `href="/admin/rooms"`) {
		t.Error("users should not see admin navigation")
	}
}

func TestTaskWorkflow(t *testing.T) {
	a := newApp(t)
	admin, code := a.adminWithRoom("ann")
	u := a.approvedUser(admin, "bob", code)
	id := a.assignedTask(admin, "Essay", "bob@example.com")

	steps := []struct {
		who    *browser
		path   string
		target string
		toast  string
		button string // offered on the page the step returns to
	}{
		{u, "/user/tasks/", "in_progress", "Task marked as in progress!", "Submit for Review"},
		{u, "/user/tasks/", "submitted", "Task submitted for review!", ""},
		{admin, "/admin/tasks/", "rejected", "Task rejected!", ""},
		{u, "/user/tasks/", "in_progress", "Task marked as in progress!", "Submit for Review"},
		{u, "/user/tasks/", "submitted", "Task submitted for review!", ""},
		{admin, "/admin/tasks/", "approved", "Task approved!", ""},
	}
	for _, st := range steps {
		page := st.who.follow(st.who.post(st.path+id+"/status", url.Values{"status": {st.target}}))
		if !strings.Contains(page.body, st.toast) {
			t.Fatalf("-> %s: missing toast %q", st.target, st.toast)
		}
		if got := taskStatus(a, id); got != st.target {
			t.Fatalf("status = %v, want %s", got, st.target)
		}
		if st.button != "" && !strings.Contains(page.body, st.button) {
			t.Errorf("-> %s: missing %q button", st.target, st.button)
		}
	}

	final := u.get("/user/dashboard")
	if strings.Contains(final.body, `action="/user/tasks/`+id+`/status"`) {
		t.Error("an approved task offers no actions")
	}
}

func TestRejectedTaskOffersRework(t *testing.T) {
	a := newApp(t)
	admin, code := a.adminWithRoom("ann")
	u := a.approvedUser(admin, "bob", code)
	id := a.assignedTask(admin, "Essay", "bob@example.com")

	u.post("/user/tasks/"+id+"/status", url.Values{"status": {"in_progress"}})
	u.post("/user/tasks/"+id+"/status", url.Values{"status": {"submitted"}})
	admin.post("/admin/tasks/"+id+"/status", url.Values{"status": {"rejected"}})

	page := u.get("/user/dashboard")
	if !strings.Contains(page.body, "Rework Task") {
		t.Error("rejected task should offer rework")
	}
	if !strings.Contains(page.body, `class="btn secondary"`) {
		t.Error("rework is a secondary button")
	}
}

func TestUserTaskStatus_Denied(t *testing.T) {
	a := newApp(t)
	admin, code := a.adminWithRoom("ann")
	u := a.approvedUser(admin, "bob", code)
	a.approvedUser(admin, "cat", code)
	mine := a.assignedTask(admin, "Mine", "bob@example.com")
	theirs := a.assignedTask(admin, "Theirs", "cat@example.com")

	tests := []struct {
		name   string
		id     string
		target string
		want   string
	}{
		{name: "skip a step", id: mine, target: "submitted", want: "toast error"},
		{name: "self approve", id: mine, target: "approved", want: "toast error"},
		{name: "unknown status", id: mine, target: "done", want: "toast error"},
		{name: "someone else's task", id: theirs, target: "in_progress", want: "toast error"},
		{name: "missing task", id: "00000000-0000-0000-0000-000000000000", target: "in_progress", want: "Task not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := u.follow(u.post("/user/tasks/"+tt.id+"/status", url.Values{"status": {tt.target}}))
			if !strings.Contains(page.body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
	if got := taskStatus(a, mine); got != "assigned" {
		t.Errorf("mine = %v, want assigned", got)
	}
	if got := taskStatus(a, theirs); got != "assigned" {
		t.Errorf("theirs = %v, want assigned", got)
	}
}

func TestUserBoard_OpenToAdmins(t *testing.T) {
	a := newApp(t)
	admin, _ := a.adminWithRoom("ann")

	// Admins are approved, so the board opens for them but lists nothing.
	page := admin.get("/user/dashboard")
	if !strings.Contains(page.body, "No tasks assigned to you yet.") {
		t.Errorf("admin user board: %q", page.body)
	}
}
