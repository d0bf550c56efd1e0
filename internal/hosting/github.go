package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"

	"tag-release/internal/model"
)

// GitHub manages releases through the GitHub REST API.
type GitHub struct {
	Owner string
	Repo  string
	// Dir resolves relative asset paths.
	Dir    string
	client *github.Client
}

// NewGitHub builds an API client. An empty token gives an unauthenticated
// client. apiURL selects a GitHub Enterprise host; uploadURL defaults to the
// same host, which serves uploads under /api/uploads/.
func NewGitHub(ctx context.Context, owner, repo, token, apiURL, uploadURL string) (*GitHub, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	if apiURL == "" {
		return &GitHub{Owner: owner, Repo: repo, client: github.NewClient(httpClient)}, nil
	}
	if uploadURL == "" {
		uploadURL = enterpriseRoot(apiURL)
	}
	client, err := github.NewEnterpriseClient(apiURL, uploadURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("github enterprise client: %w", err)
	}
	return &GitHub{Owner: owner, Repo: repo, client: client}, nil
}

// enterpriseRoot strips the REST prefix so the upload endpoint lands on
// /api/uploads/ of the same host.
func enterpriseRoot(apiURL string) string {
	root := strings.TrimSuffix(apiURL, "/")
	return strings.TrimSuffix(root, "/api/v3") + "/"
}

// releaseRequest is the create and edit payload. go-github v32 predates the
// make_latest field, so requests are built by hand.
type releaseRequest struct {
	TagName    *string `json:"tag_name,omitempty"`
	Name       *string `json:"name,omitempty"`
	Body       *string `json:"body,omitempty"`
	Prerelease *bool   `json:"prerelease,omitempty"`
	MakeLatest *string `json:"make_latest,omitempty"`
}

func (g *GitHub) View(ctx context.Context, ref string) (model.Release, error) {
	rel, err := g.byTag(ctx, ref)
	if err != nil {
		return model.Release{}, err
	}
	return model.Release{
		Tag:        rel.GetTagName(),
		Title:      rel.GetName(),
		Notes:      rel.GetBody(),
		Prerelease: rel.GetPrerelease(),
	}, nil
}

func (g *GitHub) Create(ctx context.Context, rel model.Release) error {
	body := releaseRequest{
		TagName:    github.String(rel.Tag),
		Name:       github.String(rel.Title),
		Body:       github.String(rel.Notes),
		Prerelease: github.Bool(rel.Prerelease),
	}
	switch {
	case rel.Latest:
		body.MakeLatest = github.String("true")
	case !rel.Prerelease:
		// GitHub marks every new full release latest unless told otherwise.
		body.MakeLatest = github.String("false")
	}

	created, err := g.send(ctx, http.MethodPost, fmt.Sprintf("repos/%s/%s/releases", g.Owner, g.Repo), body)
	if err != nil {
		return fmt.Errorf("create release %s: %w", rel.Tag, err)
	}
	for _, asset := range rel.Assets {
		if err := g.upload(ctx, created.GetID(), asset); err != nil {
			return fmt.Errorf("release %s: %w", rel.Tag, err)
		}
	}
	return nil
}

// Edit updates the release found under ref. Assets replace any asset of the
// same name.
func (g *GitHub) Edit(ctx context.Context, ref string, edit model.ReleaseEdit) error {
	current, err := g.byTag(ctx, ref)
	if err != nil {
		return err
	}

	body := releaseRequest{
		Name: github.String(edit.Title),
		Body: github.String(edit.Notes),
	}
	if edit.Tag != "" {
		body.TagName = github.String(edit.Tag)
	}
	if edit.Latest {
		body.Prerelease = github.Bool(false)
		body.MakeLatest = github.String("true")
	}
	path := fmt.Sprintf("repos/%s/%s/releases/%d", g.Owner, g.Repo, current.GetID())
	if _, err := g.send(ctx, http.MethodPatch, path, body); err != nil {
		return fmt.Errorf("edit release %s: %w", ref, err)
	}

	if len(edit.Assets) == 0 {
		return nil
	}
	existing, _, err := g.client.Repositories.ListReleaseAssets(ctx, g.Owner, g.Repo, current.GetID(), &github.ListOptions{PerPage: 100})
	if err != nil {
		return fmt.Errorf("list assets of %s: %w", ref, err)
	}
	for _, asset := range edit.Assets {
		name := filepath.Base(asset)
		for _, old := range existing {
			if old.GetName() != name {
				continue
			}
			if _, err := g.client.Repositories.DeleteReleaseAsset(ctx, g.Owner, g.Repo, old.GetID()); err != nil {
				return fmt.Errorf("replace asset %s: %w", name, err)
			}
		}
		if err := g.upload(ctx, current.GetID(), asset); err != nil {
			return fmt.Errorf("release %s: %w", ref, err)
		}
	}
	return nil
}

func (g *GitHub) send(ctx context.Context, method, path string, body releaseRequest) (*github.RepositoryRelease, error) {
	req, err := g.client.NewRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	rel := new(github.RepositoryRelease)
	if _, err := g.client.Do(ctx, req, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (g *GitHub) byTag(ctx context.Context, tag string) (*github.RepositoryRelease, error) {
	rel, resp, err := g.client.Repositories.GetReleaseByTag(ctx, g.Owner, g.Repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get release %s: %w", tag, err)
	}
	return rel, nil
}

func (g *GitHub) upload(ctx context.Context, id int64, path string) error {
	if !filepath.IsAbs(path) && g.Dir != "" {
		path = filepath.Join(g.Dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	opts := &github.UploadOptions{Name: filepath.Base(path)}
	if _, _, err := g.client.Repositories.UploadReleaseAsset(ctx, g.Owner, g.Repo, id, opts, f); err != nil {
		return fmt.Errorf("upload asset %s: %w", filepath.Base(path), err)
	}
	return nil
}
