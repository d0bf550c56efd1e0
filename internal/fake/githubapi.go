package fake

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// GitHubAPI serves the part of the GitHub REST API that manages the releases
// of one repository. Routes live under /api/v3/ and uploads under
// /api/uploads/, the layout of a GitHub Enterprise host. Like GitHub it
// rejects a second release for a tag and tracks a single latest release.
type GitHubAPI struct {
	Owner string
	Repo  string

	mu        sync.Mutex
	nextID    int64
	nextAsset int64
	releases  []*APIRelease
	latest    int64
	uploads   []string
	auth      []string
}

// APIRelease is a release as stored by GitHubAPI.
type APIRelease struct {
	ID         int64
	TagName    string
	Name       string
	Body       string
	Prerelease bool
	Assets     []APIAsset
}

type APIAsset struct {
	ID   int64
	Name string
}

func NewGitHubAPI(owner, repo string) *GitHubAPI {
	return &GitHubAPI{Owner: owner, Repo: repo, nextID: 1, nextAsset: 1}
}

// Release returns a copy of the release for tag.
func (a *GitHubAPI) Release(tag string) (APIRelease, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rel := a.byTag(tag); rel != nil {
		return *rel, true
	}
	return APIRelease{}, false
}

// Uploads returns the request path of every asset upload.
func (a *GitHubAPI) Uploads() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.uploads...)
}

// Auth returns the Authorization header of every request.
func (a *GitHubAPI) Auth() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.auth...)
}

// Count returns the number of releases.
func (a *GitHubAPI) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.releases)
}

// LatestTag returns the tag of the release marked latest.
func (a *GitHubAPI) LatestTag() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rel := a.byID(a.latest); rel != nil {
		return rel.TagName
	}
	return ""
}

type releaseBody struct {
	TagName    *string `json:"tag_name"`
	Name       *string `json:"name"`
	Body       *string `json:"body"`
	Prerelease *bool   `json:"prerelease"`
	MakeLatest *string `json:"make_latest"`
}

func (a *GitHubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))

	repoPath := "repos/" + a.Owner + "/" + a.Repo + "/releases"
	api := "/api/v3/" + repoPath
	uploads := "/api/uploads/" + repoPath
	path := r.URL.Path

	switch {
	case path == api && r.Method == http.MethodPost:
		a.create(w, r)
	case strings.HasPrefix(path, api+"/tags/") && r.Method == http.MethodGet:
		a.view(w, strings.TrimPrefix(path, api+"/tags/"))
	case strings.HasPrefix(path, api+"/assets/") && r.Method == http.MethodDelete:
		a.deleteAsset(w, strings.TrimPrefix(path, api+"/assets/"))
	case strings.HasPrefix(path, uploads+"/") && r.Method == http.MethodPost:
		a.upload(w, r, strings.TrimSuffix(strings.TrimPrefix(path, uploads+"/"), "/assets"))
	case strings.HasPrefix(path, api+"/"):
		parts := strings.Split(strings.TrimPrefix(path, api+"/"), "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodPatch:
			a.edit(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "assets" && r.Method == http.MethodGet:
			a.listAssets(w, parts[0])
		default:
			notFound(w)
		}
	default:
		notFound(w)
	}
}

func (a *GitHubAPI) create(w http.ResponseWriter, r *http.Request) {
	var body releaseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TagName == nil {
		http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
		return
	}
	if a.byTag(*body.TagName) != nil {
		alreadyExists(w)
		return
	}
	rel := &APIRelease{ID: a.nextID, TagName: *body.TagName}
	a.nextID++
	apply(rel, body)
	a.releases = append(a.releases, rel)
	// New full releases become latest unless make_latest says otherwise.
	if !rel.Prerelease && (body.MakeLatest == nil || *body.MakeLatest == "true") {
		a.latest = rel.ID
	}
	writeJSON(w, http.StatusCreated, releaseJSON(rel))
}

func (a *GitHubAPI) edit(w http.ResponseWriter, r *http.Request, idText string) {
	rel := a.byID(parseID(idText))
	if rel == nil {
		notFound(w)
		return
	}
	var body releaseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
		return
	}
	if body.TagName != nil {
		if other := a.byTag(*body.TagName); other != nil && other.ID != rel.ID {
			alreadyExists(w)
			return
		}
		rel.TagName = *body.TagName
	}
	apply(rel, body)
	if body.MakeLatest != nil && *body.MakeLatest == "true" {
		a.latest = rel.ID
	}
	writeJSON(w, http.StatusOK, releaseJSON(rel))
}

func (a *GitHubAPI) view(w http.ResponseWriter, tag string) {
	rel := a.byTag(tag)
	if rel == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, releaseJSON(rel))
}

func (a *GitHubAPI) listAssets(w http.ResponseWriter, idText string) {
	rel := a.byID(parseID(idText))
	if rel == nil {
		notFound(w)
		return
	}
	assets := make([]map[string]any, 0, len(rel.Assets))
	for _, asset := range rel.Assets {
		assets = append(assets, map[string]any{"id": asset.ID, "name": asset.Name})
	}
	writeJSON(w, http.StatusOK, assets)
}

func (a *GitHubAPI) deleteAsset(w http.ResponseWriter, idText string) {
	id := parseID(idText)
	for _, rel := range a.releases {
		for i, asset := range rel.Assets {
			if asset.ID == id {
				rel.Assets = append(rel.Assets[:i], rel.Assets[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	notFound(w)
}

func (a *GitHubAPI) upload(w http.ResponseWriter, r *http.Request, idText string) {
	rel := a.byID(parseID(idText))
	if rel == nil {
		notFound(w)
		return
	}
	name := r.URL.Query().Get("name")
	for _, asset := range rel.Assets {
		if asset.Name == name {
			alreadyExists(w)
			return
		}
	}
	io.Copy(io.Discard, r.Body)
	asset := APIAsset{ID: a.nextAsset, Name: name}
	a.nextAsset++
	rel.Assets = append(rel.Assets, asset)
	a.uploads = append(a.uploads, r.URL.Path)
	writeJSON(w, http.StatusCreated, map[string]any{"id": asset.ID, "name": asset.Name})
}

func (a *GitHubAPI) byTag(tag string) *APIRelease {
	for _, rel := range a.releases {
		if rel.TagName == tag {
			return rel
		}
	}
	return nil
}

func (a *GitHubAPI) byID(id int64) *APIRelease {
	for _, rel := range a.releases {
		if rel.ID == id {
			return rel
		}
	}
	return nil
}

func apply(rel *APIRelease, body releaseBody) {
	if body.Name != nil {
		rel.Name = *body.Name
	}
	if body.Body != nil {
		rel.Body = *body.Body
	}
	if body.Prerelease != nil {
		rel.Prerelease = *body.Prerelease
	}
}

func releaseJSON(rel *APIRelease) map[string]any {
	return map[string]any{
		"id":         rel.ID,
		"tag_name":   rel.TagName,
		"name":       rel.Name,
		"body":       rel.Body,
		"prerelease": rel.Prerelease,
	}
}

func parseID(text string) int64 {
	id, _ := strconv.ParseInt(text, 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

func alreadyExists(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "Validation Failed",
		"errors": []map[string]string{
			{"resource": "Release", "code": "already_exists", "field": "tag_name"},
		},
	})
}

var _ http.Handler = (*GitHubAPI)(nil)
