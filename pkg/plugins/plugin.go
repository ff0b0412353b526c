package plugins

import "path/filepath"

// Plugin is one loaded plugin directory.
type Plugin struct {
	Manifest Manifest
	Path     string
	Enabled  bool
}

func load(pluginDir string) (*Plugin, error) {
	manifest, err := loadManifest(pluginDir)
	if err != nil {
		return nil, err
	}
	return &Plugin{Manifest: manifest, Path: pluginDir, Enabled: true}, nil
}

// Name is the plugin's declared name.
func (p *Plugin) Name() string { return p.Manifest.Name }

// Root returns the plugin's directory, the value injected as PLUGIN_ROOT.
func (p *Plugin) Root() string { return p.Path }

// EnvVars returns the environment variables set when running this
// plugin's command hooks and command scripts.
func (p *Plugin) EnvVars() map[string]string {
	return map[string]string{
		"PLUGIN_ROOT":    p.Path,
		"PLUGIN_NAME":    p.Manifest.Name,
		"PLUGIN_VERSION": p.Manifest.Version,
	}
}

// ResolvePath joins a path relative to the plugin root.
func (p *Plugin) ResolvePath(relative string) string {
	return filepath.Join(p.Path, relative)
}
