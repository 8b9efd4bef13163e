package git

import (
	"strings"
	"testing"
)

const twoFiles = `diff --git a/a.txt b/a.txt
index 3b18e51..a042389 100644
--- a/a.txt
+++ b/a.txt
@@ -1 +1,2 @@
 hello
+func added() {}
diff --git a/b.txt b/b.txt
index 8d0e412..e69de29 100644
--- a/b.txt
+++ b/b.txt
@@ -1 +0,0 @@
-var removed = 1
`

func TestSplitDiff(t *testing.T) {
	files := SplitDiff(twoFiles)
	if len(files) != 2 {
		t.Fatalf("SplitDiff returned %d files, want 2", len(files))
	}
	if files[0].Path != "a.txt" || files[1].Path != "b.txt" {
		t.Errorf("paths = %q, %q; want a.txt, b.txt", files[0].Path, files[1].Path)
	}
	if !strings.HasPrefix(files[0].Text, "diff --git a/a.txt b/a.txt\n") {
		t.Errorf("first section does not start at its header: %q", files[0].Text)
	}
	if !strings.HasSuffix(files[0].Text, "+func added() {}") {
		t.Errorf("first section leaks into the next file: %q", files[0].Text)
	}
	if strings.Contains(files[1].Text, "a.txt") {
		t.Errorf("second section contains first file: %q", files[1].Text)
	}
	if files[0].Text+"\n"+files[1].Text+"\n" != twoFiles {
		t.Error("sections do not reassemble into the original diff")
	}
}

func TestSplitDiff_Paths(t *testing.T) {
	tests := []struct {
		name string
		diff string
		want string
	}{
		{
			name: "new file",
			diff: "diff --git a/new.go b/new.go\nnew file mode 100644\n--- /dev/null\n+++ b/new.go\n@@ -0,0 +1 @@\n+package x\n",
			want: "new.go",
		},
		{
			name: "deleted file",
			diff: "diff --git a/old.go b/old.go\ndeleted file mode 100644\n--- a/old.go\n+++ /dev/null\n@@ -1 +0,0 @@\n-package x\n",
			want: "old.go",
		},
		{
			name: "rename",
			diff: "diff --git a/from.go b/to.go\nsimilarity index 100%\nrename from from.go\nrename to to.go\n",
			want: "to.go",
		},
		{
			name: "nested path",
			diff: "diff --git a/pkg/llm/llm.go b/pkg/llm/llm.go\n--- a/pkg/llm/llm.go\n+++ b/pkg/llm/llm.go\n",
			want: "pkg/llm/llm.go",
		},
		{
			name: "space in name",
			diff: "diff --git a/my file.txt b/my file.txt\n--- a/my file.txt\n+++ b/my file.txt\n",
			want: "my file.txt",
		},
		{
			name: "added line looks like a header",
			diff: "diff --git a/real.txt b/real.txt\n--- a/real.txt\n+++ b/real.txt\n@@ -1 +1,2 @@\n x\n+++ b/fake.txt\n+rename to other.txt\n",
			want: "real.txt",
		},
		{
			name: "crlf",
			diff: "diff --git a/win.txt b/win.txt\r\n--- a/win.txt\r\n+++ b/win.txt\r\n",
			want: "win.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := SplitDiff(tt.diff)
			if len(files) != 1 {
				t.Fatalf("SplitDiff returned %d files, want 1", len(files))
			}
			if files[0].Path != tt.want {
				t.Errorf("Path = %q, want %q", files[0].Path, tt.want)
			}
		})
	}
}

func TestSplitDiff_Empty(t *testing.T) {
	for _, in := range []string{"", "\n", "warning: something\n"} {
		if files := SplitDiff(in); len(files) != 0 {
			t.Errorf("SplitDiff(%q) = %v, want none", in, files)
		}
	}
}
