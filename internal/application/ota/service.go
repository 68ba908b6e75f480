// Package ota serves the ad-hoc iOS install flow: an HTML landing page, the
// manifest the device fetches through itms-services, and the .ipa itself.
package ota

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/id"
)

// ipaLinkTTL bounds how long a presigned download stays usable.
const ipaLinkTTL = 15 * time.Minute

type Service interface {
	InstallPage(ctx context.Context, baseURL string) ([]byte, error)
	Manifest(ctx context.Context, baseURL string) ([]byte, error)
	// IPA tells the caller where the current build lives: a local file when a
	// static directory is configured, otherwise a presigned S3 URL.
	IPA(ctx context.Context) (*Download, error)
	Current(ctx context.Context) (*domain.AppVersion, error)
	SetVersion(ctx context.Context, in domain.AppVersionInput) (*domain.AppVersion, error)
}

type Download struct {
	Path string
	URL  string
}

type versionStore interface {
	Put(ctx context.Context, v *domain.AppVersion) error
	GetLatest(ctx context.Context) (*domain.AppVersion, error)
}

type presigner interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Settings struct {
	Title     string
	BundleID  string
	IPAKey    string
	StaticDir string
}

type ServiceDeps struct {
	Versions versionStore
	Objects  presigner
	Settings Settings
}

type service struct {
	versions versionStore
	objects  presigner
	settings Settings
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		versions: deps.Versions,
		objects:  deps.Objects,
		settings: deps.Settings,
		now:      time.Now,
	}
}

var pageTmpl = template.Must(template.New("install").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Install {{.Title}}</title>
<style>
body{font-family:-apple-system,Helvetica,sans-serif;text-align:center;padding:48px 16px;color:#222}
a.btn{display:inline-block;padding:14px 28px;border-radius:10px;background:#b3261e;color:#fff;text-decoration:none;font-weight:600}
p.meta{color:#777;font-size:14px}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Version {{.Version}}</p>
{{with .Notes}}<p>{{.}}</p>{{end}}
<p><a class="btn" href="{{.InstallURL}}">Install on iPhone</a></p>
<p class="meta">Open this page in Safari on the device you want to install on.</p>
</body>
</html>
`))

var manifestTmpl = texttemplate.Must(texttemplate.New("manifest").Funcs(texttemplate.FuncMap{
	"xml": texttemplate.HTMLEscapeString,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>items</key>
	<array>
		<dict>
			<key>assets</key>
			<array>
				<dict>
					<key>kind</key>
					<string>software-package</string>
					<key>url</key>
					<string>{{xml .IPAURL}}</string>
				</dict>
			</array>
			<key>metadata</key>
			<dict>
				<key>bundle-identifier</key>
				<string>{{xml .BundleID}}</string>
				<key>bundle-version</key>
				<string>{{xml .Version}}</string>
				<key>kind</key>
				<string>software</string>
				<key>title</key>
				<string>{{xml .Title}}</string>
			</dict>
		</dict>
	</array>
</dict>
</plist>
`))

type pageData struct {
	Title      string
	Version    string
	Notes      string
	InstallURL template.URL
}

type manifestData struct {
	Title    string
	Version  string
	BundleID string
	IPAURL   string
}

func (s *service) InstallPage(ctx context.Context, baseURL string) ([]byte, error) {
	v, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	manifest := strings.TrimRight(baseURL, "/") + "/v1/ota/manifest.plist"
	data := pageData{
		Title:   s.settings.Title,
		Version: v.Version,
		Notes:   v.Notes,
		// html/template rejects unknown schemes, so the itms-services link is
		// marked as trusted after escaping the manifest URL.
		InstallURL: template.URL("itms-services://?action=download-manifest&url=" + url.QueryEscape(manifest)),
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render install page: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *service) Manifest(ctx context.Context, baseURL string) ([]byte, error) {
	v, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	data := manifestData{
		Title:    s.settings.Title,
		Version:  v.Version,
		BundleID: v.BundleID,
		IPAURL:   strings.TrimRight(baseURL, "/") + "/v1/ota/app.ipa",
	}
	var buf bytes.Buffer
	if err := manifestTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *service) IPA(ctx context.Context) (*Download, error) {
	v, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if s.settings.StaticDir != "" {
		return &Download{Path: filepath.Join(s.settings.StaticDir, filepath.Base(v.IPAKey))}, nil
	}
	if s.objects == nil {
		return nil, fmt.Errorf("no ipa storage configured: %w", domain.ErrNotFound)
	}
	u, err := s.objects.PresignedURL(ctx, v.IPAKey, ipaLinkTTL)
	if err != nil {
		return nil, err
	}
	return &Download{URL: u}, nil
}

// Current returns the newest enabled build, or one described purely by
// configuration when none has been published yet.
func (s *service) Current(ctx context.Context) (*domain.AppVersion, error) {
	v, err := s.versions.GetLatest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.AppVersion{
			Version:  "1.0.0",
			BundleID: s.settings.BundleID,
			IPAKey:   s.settings.IPAKey,
			Enable:   true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if v.BundleID == "" {
		v.BundleID = s.settings.BundleID
	}
	if v.IPAKey == "" {
		v.IPAKey = s.settings.IPAKey
	}
	return v, nil
}

func (s *service) SetVersion(ctx context.Context, in domain.AppVersionInput) (*domain.AppVersion, error) {
	version := strings.TrimSpace(in.Version)
	if version == "" {
		return nil, fmt.Errorf("version is required: %w", domain.ErrBadRequest)
	}
	if strings.Contains(in.IPAKey, "..") {
		return nil, fmt.Errorf("invalid ipa key: %w", domain.ErrBadRequest)
	}
	v := &domain.AppVersion{
		VersionID: id.New(),
		Version:   version,
		BundleID:  in.BundleID,
		IPAKey:    in.IPAKey,
		Notes:     in.Notes,
		Enable:    true,
		CreatedAt: s.now().UTC(),
	}
	if v.BundleID == "" {
		v.BundleID = s.settings.BundleID
	}
	if v.IPAKey == "" {
		v.IPAKey = s.settings.IPAKey
	}
	if err := s.versions.Put(ctx, v); err != nil {
		return nil, err
	}
	slog.Info("app version published", "version", v.Version, "bundle_id", v.BundleID)
	return v, nil
}
