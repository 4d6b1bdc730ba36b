package profile

// Profile is the root object of a cloudkit.yaml file. It names one provider
// and, optionally, the image tags a promotion run should produce.
type Profile struct {
	APIVersion string   `yaml:"apiVersion" mapstructure:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" mapstructure:"kind" validate:"required,eq=Profile"`
	Metadata   Metadata `yaml:"metadata" mapstructure:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" mapstructure:"spec" validate:"required"`
}

// Metadata contains profile-level metadata.
type Metadata struct {
	Name        string            `yaml:"name" mapstructure:"name" validate:"required"`
	Description string            `yaml:"description" mapstructure:"description"`
	Labels      map[string]string `yaml:"labels,omitempty" mapstructure:"labels"`
}

type Spec struct {
	Provider Provider `yaml:"provider" mapstructure:"provider" validate:"required"`
	Promote  *Promote `yaml:"promote,omitempty" mapstructure:"promote" validate:"omitempty"`
}

// Provider selects the backend and carries its credentials. hosted-registry
// needs a username and password; cli-registry needs the ID of a
// service-account key file found in CredentialDir.
type Provider struct {
	Kind          string `yaml:"kind" mapstructure:"kind" validate:"required"`
	Username      string `yaml:"username" mapstructure:"username" validate:"required_if=Kind hosted-registry"`
	Password      string `yaml:"password" mapstructure:"password" validate:"required_if=Kind hosted-registry"`
	KeyID         string `yaml:"keyId" mapstructure:"keyId" validate:"required_if=Kind cli-registry"`
	CredentialDir string `yaml:"credentialDir" mapstructure:"credentialDir"`
}

// Promote describes one promotion: every target is tagged from source.
type Promote struct {
	Source  string   `yaml:"source" mapstructure:"source" validate:"required"`
	Targets []string `yaml:"targets" mapstructure:"targets" validate:"required,min=1,dive,required"`
}
