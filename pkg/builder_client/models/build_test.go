package models

import "testing"

func TestBuildRequest_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		input         BuildRequest
		wantStack     Stack
		wantResources []string
	}{
		{
			name:          "defaults to first stack",
			input:         BuildRequest{Resources: []string{"Patient"}},
			wantStack:     StackNextFHIRClient,
			wantResources: []string{"Patient"},
		},
		{
			name:          "keeps explicit stack",
			input:         BuildRequest{Stack: StackGoGin, Resources: []string{"Patient"}},
			wantStack:     StackGoGin,
			wantResources: []string{"Patient"},
		},
		{
			name:          "trims and drops blank resources",
			input:         BuildRequest{Stack: "  ", Resources: []string{" Patient ", "", "  ", "Observation"}},
			wantStack:     StackNextFHIRClient,
			wantResources: []string{"Patient", "Observation"},
		},
	}

	for _, tc := range tests {
		current := tc
		t.Run(current.name, func(t *testing.T) {
			current.input.Normalize()
			if current.input.Stack != current.wantStack {
				t.Fatalf("expected stack %q, got %q", current.wantStack, current.input.Stack)
			}
			if len(current.input.Resources) != len(current.wantResources) {
				t.Fatalf("expected %v, got %v", current.wantResources, current.input.Resources)
			}
			for i := range current.wantResources {
				if current.input.Resources[i] != current.wantResources[i] {
					t.Fatalf("expected %v, got %v", current.wantResources, current.input.Resources)
				}
			}
		})
	}
}

func TestDefaultStack(t *testing.T) {
	if DefaultStack() != SupportedStacks[0] {
		t.Fatalf("default stack must be the first supported stack")
	}
}
