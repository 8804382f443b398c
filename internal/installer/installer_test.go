package installer

import (
	"testing"

	"dp-go/internal/config"
)

func TestPipArgs(t *testing.T) {
	got := pipArgs([]string{"requests", "textblob"}, "/tmp/staging")
	want := []string{"install", "--target", "/tmp/staging", "--upgrade", "requests", "textblob"}

	if len(got) != len(want) {
		t.Fatalf("pipArgs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pipArgs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDockerArgs(t *testing.T) {
	t.Run("with platform", func(t *testing.T) {
		d := NewDockerInstaller("public.ecr.aws/sam/build-python3.12", "linux/amd64")
		got := d.dockerArgs([]string{"requests"}, "/work/staging")
		want := []string{
			"run", "--rm",
			"--platform", "linux/amd64",
			"-v", "/work/staging:/var/task",
			"--entrypoint", "pip",
			"public.ecr.aws/sam/build-python3.12",
			"install", "--target", "/var/task", "--upgrade", "requests",
		}

		if len(got) != len(want) {
			t.Fatalf("dockerArgs() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("dockerArgs()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("without platform omits the flag", func(t *testing.T) {
		d := NewDockerInstaller("", "")
		got := d.dockerArgs([]string{"requests"}, "/work/staging")

		for _, a := range got {
			if a == "--platform" {
				t.Errorf("dockerArgs() = %v, should not contain --platform", got)
			}
		}
		// Default image is used.
		found := false
		for _, a := range got {
			if a == DefaultBuildImage {
				found = true
			}
		}
		if !found {
			t.Errorf("dockerArgs() = %v, want default image %q", got, DefaultBuildImage)
		}
	})
}

func TestNewPipInstaller_DefaultBinary(t *testing.T) {
	p := NewPipInstaller("")
	if p.binary != DefaultPipBinary {
		t.Errorf("binary = %q, want %q", p.binary, DefaultPipBinary)
	}
}

func TestNewInstallerFromConfig(t *testing.T) {
	t.Run("empty type defaults to pip", func(t *testing.T) {
		inst, err := NewInstallerFromConfig(config.InstallerConfig{})
		if err != nil {
			t.Fatalf("NewInstallerFromConfig() error = %v", err)
		}
		if _, ok := inst.(*PipInstaller); !ok {
			t.Errorf("installer type = %T, want *PipInstaller", inst)
		}
	})

	t.Run("docker type", func(t *testing.T) {
		inst, err := NewInstallerFromConfig(config.InstallerConfig{Type: "docker", Image: "img", Platform: "linux/arm64"})
		if err != nil {
			t.Fatalf("NewInstallerFromConfig() error = %v", err)
		}
		if _, ok := inst.(*DockerInstaller); !ok {
			t.Errorf("installer type = %T, want *DockerInstaller", inst)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewInstallerFromConfig(config.InstallerConfig{Type: "conda"}); err == nil {
			t.Error("NewInstallerFromConfig() expected error for unknown type")
		}
	})
}
