// SPDX-License-Identifier: MPL-2.0

package koji

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/imagekit/pkg/artifact"
)

// Output shaped like the real client, including trailing commas.
const (
	listArchivesOutput = `
        [
          {
            "build_id": "build_id",
            "filename": "filename",
            "group_id": "group_id",
            "artifact_id": "artifact_id",
            "version": "version",
          }
        ]`

	getBuildCompleteOutput = `
        {
          "package_name": "package_name",
          "release": "release",
          "state": 1
        }`

	getBuildDeletedOutput = `
        {
          "package_name": "package_name",
          "release": "release",
          "state": 2
        }`
)

func TestClient_ListArchives(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	recorder.outputs["listArchives"] = listArchivesOutput
	client := New(WithExecCommand(recorder.commandFunc(t)))

	archives, err := client.ListArchives(context.Background(), "aa")
	if err != nil {
		t.Fatalf("ListArchives() error = %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("expected 1 archive, got %d", len(archives))
	}
	want := artifact.Archive{
		BuildID:    "build_id",
		Filename:   "filename",
		GroupID:    "group_id",
		ArtifactID: "artifact_id",
		Version:    "version",
	}
	if archives[0] != want {
		t.Errorf("archive = %+v, want %+v", archives[0], want)
	}

	if len(recorder.invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(recorder.invocations))
	}
	inv := recorder.invocations[0]
	wantArgs := []string{"call", "--json-output", "listArchives", "checksum=aa", "type=maven"}
	if inv.name != "brew" || !slices.Equal(inv.args, wantArgs) {
		t.Errorf("invocation = %s %v, want brew %v", inv.name, inv.args, wantArgs)
	}
}

func TestClient_ListArchives_EmptyOutput(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	client := New(WithExecCommand(recorder.commandFunc(t)))

	archives, err := client.ListArchives(context.Background(), "aa")
	if err != nil {
		t.Fatalf("ListArchives() error = %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("expected no archives, got %v", archives)
	}
}

func TestClient_GetBuild(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	recorder.outputs["getBuild"] = getBuildCompleteOutput
	client := New(WithBinary("koji"), WithExecCommand(recorder.commandFunc(t)))

	build, err := client.GetBuild(context.Background(), "1234")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	want := artifact.Build{PackageName: "package_name", Release: "release", State: artifact.BuildComplete}
	if *build != want {
		t.Errorf("build = %+v, want %+v", *build, want)
	}

	inv := recorder.invocations[0]
	if inv.name != "koji" || !slices.Equal(inv.args, []string{"call", "--json-output", "getBuild", "1234"}) {
		t.Errorf("invocation = %s %v", inv.name, inv.args)
	}
}

func TestClient_GetBuild_NotFound(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	recorder.outputs["getBuild"] = "null"
	client := New(WithExecCommand(recorder.commandFunc(t)))

	if _, err := client.GetBuild(context.Background(), "1"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("GetBuild() error = %v, want not found", err)
	}
}

func TestClient_CommandFailure(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	recorder.exitCode = 1
	recorder.stderr = "AuthError: unable to obtain a session"
	client := New(WithExecCommand(recorder.commandFunc(t)))

	_, err := client.ListArchives(context.Background(), "aa")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("ListArchives() error = %v, want ErrCommandFailed", err)
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.Stderr != "AuthError: unable to obtain a session" {
		t.Errorf("Stderr = %q", cmdErr.Stderr)
	}
	if !strings.Contains(err.Error(), "brew call --json-output listArchives") {
		t.Errorf("error should contain the command line, got: %v", err)
	}
	if len(recorder.invocations) != 1 {
		t.Errorf("failures must not be retried, got %d invocations", len(recorder.invocations))
	}
}

func TestClient_InvalidOutput(t *testing.T) {
	t.Parallel()

	recorder := newMockCommandRecorder()
	recorder.outputs["listArchives"] = "Traceback (most recent call last)"
	client := New(WithExecCommand(recorder.commandFunc(t)))

	if _, err := client.ListArchives(context.Background(), "aa"); err == nil {
		t.Error("expected decode error")
	}
}

func TestResolverWithClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    string
		wantURL  string
		wantErrs string
	}{
		{
			name:  "complete build",
			build: getBuildCompleteOutput,
			wantURL: "http://download.devel.redhat.com/brewroot/packages/package_name/" +
				"version/release/maven/group_id/artifact_id/version/filename",
		},
		{
			name:     "deleted build",
			build:    getBuildDeletedOutput,
			wantErrs: "artifact with checksum aa was found in Koji metadata but the build is in incorrect state (DELETED)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := newMockCommandRecorder()
			recorder.outputs["listArchives"] = listArchivesOutput
			recorder.outputs["getBuild"] = tt.build
			resolver := artifact.NewResolver(New(WithExecCommand(recorder.commandFunc(t))))

			url, err := resolver.ResolveURL(context.Background(), "aa")
			if tt.wantErrs != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrs) {
					t.Fatalf("ResolveURL() error = %v, want %q", err, tt.wantErrs)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveURL() error = %v", err)
			}
			if url != tt.wantURL {
				t.Errorf("ResolveURL() = %q, want %q", url, tt.wantURL)
			}
		})
	}
}
