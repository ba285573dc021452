// Package script emits the POSIX-sh-compatible shell hook printed by
// zsql -S, kept as a real, independently testable package rather than a
// string literal inline in main the way the teacher isolates DDL
// generation behind its own generator type instead of building strings
// in main.
package script

import "fmt"

// Render returns the shell snippet a user sources from their profile.
// It registers a post-prompt hook that records the current directory in
// the background, and defines a function that runs prog with the given
// arguments, cd-ing to its output when the invocation was a search
// (stripping the trailing sentinel) and passing non-search flags
// through untouched.
func Render(prog string) string {
	return fmt.Sprintf(`# Generated by %[1]s -S; source this from your shell profile.
_%[1]s_hook() {
	%[1]s -a "$(pwd)" >/dev/null 2>&1 &
}

case "$PROMPT_COMMAND" in
	*_%[1]s_hook*) ;;
	*) PROMPT_COMMAND="_%[1]s_hook;${PROMPT_COMMAND}" ;;
esac

z() {
	case "$1" in
	-a|-f|-S)
		%[1]s "$@"
		;;
	*)
		__zsql_dest="$(%[1]s "$@")" || return $?
		cd "${__zsql_dest%%?}" || return $?
		;;
	esac
}
`, prog)
}
