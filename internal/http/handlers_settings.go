package http

import (
	"fmt"
	"net/http"

	"sitebook/internal/core"
	"sitebook/internal/log"
	"sitebook/internal/services"
	"sitebook/internal/settings"
)

type settingsCategory struct {
	Category  core.Category
	Items     []string
	Locations []string
}

// suggestionBlock feeds the "suggestions" template for one list.
type suggestionBlock struct {
	Project  string
	Category string
	Kind     string
	Values   []string
}

type settingsView struct {
	Projects   []string
	Project    string
	Categories []settingsCategory
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()

	doc, err := s.svc.Settings(ctx)
	project := services.Snapshot{Settings: doc}.Project(requestProject(r))
	v := settingsView{Projects: doc.Projects, Project: project}
	for _, c := range doc.Categories(project) {
		v.Categories = append(v.Categories, settingsCategory{
			Category:  c,
			Items:     doc.Suggestions(project, c.Key, settings.ItemSuggestions),
			Locations: doc.Suggestions(project, c.Key, settings.LocationSuggestions),
		})
	}
	rememberProject(w, project)
	s.render(w, r, "settings.html", page{
		Title:    "設定",
		Active:   "settings",
		Project:  project,
		Projects: doc.Projects,
		Warning:  warning(err),
		View:     v,
	})
}

// settingsForm parses the form and runs one settings mutation.
func (s *Server) settingsForm(w http.ResponseWriter, r *http.Request, op string,
	apply func(r *http.Request) (project, message string, err error)) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("表單格式錯誤").Write(w)
		return
	}
	project, msg, err := apply(r)
	if err != nil {
		s.respondError(w, r, op, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Settings updated",
		log.NewFields().WithOperation(op).WithProject(project).ToSlice()...)
	rememberProject(w, project)
	s.respondOK(w, r, project, msg, periodURL("/settings", project, 0, 0))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "create_project", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		name := sanitizeInput(r.PostFormValue("name"))
		return name, "已新增工地 " + name, s.svc.CreateProject(ctx, name)
	})
}

func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, log.OpRename, func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		oldName := sanitizeInput(r.PostFormValue("old_name"))
		newName := sanitizeInput(r.PostFormValue("new_name"))
		n, err := s.svc.RenameProject(ctx, oldName, newName)
		return newName, fmt.Sprintf("工地已更名為 %s，更新 %d 筆紀錄", newName, n), err
	})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "delete_project", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		name := sanitizeInput(r.PostFormValue("name"))
		n, err := s.svc.DeleteProject(ctx, name)
		return "", fmt.Sprintf("已刪除工地 %s 及 %d 筆紀錄", name, n), err
	})
}

func categoryFromForm(r *http.Request) core.Category {
	return core.Category{
		Key:     sanitizeInput(r.PostFormValue("key")),
		Display: sanitizeInput(r.PostFormValue("display")),
		Type:    core.CategoryType(sanitizeInput(r.PostFormValue("type"))),
	}
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "add_category", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		project := sanitizeInput(r.PostFormValue("project"))
		c := categoryFromForm(r)
		return project, "已新增類別 " + c.Display, s.svc.AddCategory(ctx, project, c)
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "update_category", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		project := sanitizeInput(r.PostFormValue("project"))
		c := categoryFromForm(r)
		n, err := s.svc.UpdateCategory(ctx, project, sanitizeInput(r.PostFormValue("old_key")), c)
		return project, fmt.Sprintf("已更新類別 %s，更新 %d 筆紀錄", c.Display, n), err
	})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "remove_category", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		project := sanitizeInput(r.PostFormValue("project"))
		key := sanitizeInput(r.PostFormValue("key"))
		return project, "已移除類別 " + key, s.svc.RemoveCategory(ctx, project, key)
	})
}

type suggestionForm struct {
	project, category string
	kind              settings.SuggestionKind
}

func parseSuggestionForm(r *http.Request) suggestionForm {
	return suggestionForm{
		project:  sanitizeInput(r.PostFormValue("project")),
		category: sanitizeInput(r.PostFormValue("category")),
		kind:     settings.SuggestionKind(sanitizeInput(r.PostFormValue("kind"))),
	}
}

func (s *Server) handleAddSuggestion(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "add_suggestion", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		f := parseSuggestionForm(r)
		value := sanitizeInput(r.PostFormValue("value"))
		return f.project, "已新增選項 " + value, s.svc.AddSuggestion(ctx, f.project, f.category, f.kind, value)
	})
}

func (s *Server) handleRemoveSuggestion(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, "remove_suggestion", func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		f := parseSuggestionForm(r)
		value := sanitizeInput(r.PostFormValue("value"))
		return f.project, "已移除選項 " + value, s.svc.RemoveSuggestion(ctx, f.project, f.category, f.kind, value)
	})
}

func (s *Server) handleRenameSuggestion(w http.ResponseWriter, r *http.Request) {
	s.settingsForm(w, r, log.OpRename, func(r *http.Request) (string, string, error) {
		ctx, cancel := s.storeContext(r)
		defer cancel()
		f := parseSuggestionForm(r)
		oldValue := sanitizeInput(r.PostFormValue("old_value"))
		newValue := sanitizeInput(r.PostFormValue("new_value"))
		n, err := s.svc.RenameSuggestion(ctx, f.project, f.category, f.kind, oldValue, newValue)
		return f.project, fmt.Sprintf("已將 %s 更名為 %s，更新 %d 筆紀錄", oldValue, newValue, n), err
	})
}
