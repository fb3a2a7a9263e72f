package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/viert/flatfs/storage"
)

// Verb is the first, case-insensitive field of a command line
type Verb string

const (
	VerbCreate Verb = "CREATE"
	VerbWrite  Verb = "WRITE"
	VerbRead   Verb = "READ"
	VerbList   Verb = "LIST"
	VerbDelete Verb = "DELETE"
	VerbQuit   Verb = "QUIT"
)

const (
	successPrefix = "SUCCESS: "
	contentPrefix = "CONTENT: "
	errorPrefix   = "ERROR: "
	listPrefix    = "Current files available: "
	listSeparator = ", "

	// NoFiles is the LIST response for an empty store
	NoFiles = "No files found."
	// UnknownCommand is the response to an unrecognized verb
	UnknownCommand = errorPrefix + "Unknown command."
	// Disconnecting is the QUIT response
	Disconnecting = successPrefix + "Disconnecting."
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")

	contentSuffix = regexp.MustCompile(` \((\d+) bytes\)$`)
	contentHeader = regexp.MustCompile(`^CONTENT: \((\d+) bytes follow\)$`)
)

// Command is a parsed request line
type Command struct {
	Verb    Verb
	Name    string
	Content string
}

// Parse splits a request line into at most three fields: the verb,
// the file name and the content, which is the remainder of the line
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 3)
	cmd := Command{Verb: Verb(strings.ToUpper(parts[0]))}

	switch cmd.Verb {
	case VerbList, VerbQuit:
		return cmd, nil
	case VerbCreate, VerbRead, VerbDelete:
		if len(parts) < 2 || parts[1] == "" {
			return cmd, fmt.Errorf("%w: %s requires a file name", ErrMissingArgument, cmd.Verb)
		}
		cmd.Name = parts[1]
		return cmd, nil
	case VerbWrite:
		if len(parts) < 2 || parts[1] == "" {
			return cmd, fmt.Errorf("%w: %s requires a file name", ErrMissingArgument, cmd.Verb)
		}
		cmd.Name = parts[1]
		if len(parts) < 3 {
			return cmd, fmt.Errorf("%w: %s requires content", ErrMissingArgument, cmd.Verb)
		}
		cmd.Content = parts[2]
		return cmd, nil
	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, parts[0])
	}
}

// String renders the command back into a request line
func (c Command) String() string {
	switch c.Verb {
	case VerbWrite:
		return fmt.Sprintf("%s %s %s", c.Verb, c.Name, c.Content)
	case VerbList, VerbQuit:
		return string(c.Verb)
	default:
		return fmt.Sprintf("%s %s", c.Verb, c.Name)
	}
}

func Created(name string) string {
	return fmt.Sprintf("%sFile '%s' created.", successPrefix, name)
}

func Written(name string) string {
	return fmt.Sprintf("%sFile '%s' written to.", successPrefix, name)
}

func Deleted(name string) string {
	return fmt.Sprintf("%sFile %s deleted", successPrefix, name)
}

// Content formats a READ response. Content holding line breaks is sent
// as a header announcing its length followed by the raw bytes.
func Content(data []byte) string {
	if bytes.ContainsAny(data, "\r\n") {
		return fmt.Sprintf("%s(%d bytes follow)\n%s", contentPrefix, len(data), data)
	}
	return fmt.Sprintf("%s%s (%d bytes)", contentPrefix, data, len(data))
}

// Listing formats a LIST response
func Listing(names []string) string {
	if len(names) == 0 {
		return NoFiles
	}
	return listPrefix + strings.Join(names, listSeparator)
}

// Error formats an operation failure for the file name
func Error(name string, err error) string {
	return errorPrefix + ErrorMessage(name, err)
}

// ErrorMessage turns an error into the message sent to clients
func ErrorMessage(name string, err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return "Unknown command."
	case errors.Is(err, ErrMissingArgument):
		return "Missing argument."
	case errors.Is(err, storage.ErrDuplicateName):
		return "Filename already exists. Try again."
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("file %s does not exist.", name)
	case errors.Is(err, storage.ErrTableFull):
		return "No free file entries available."
	case errors.Is(err, storage.ErrAllocationExhausted):
		return "No free blocks available."
	case errors.Is(err, storage.ErrFileTooLarge):
		return "file too large."
	case errors.Is(err, storage.ErrInvalidName):
		return fmt.Sprintf("invalid file name, up to %d bytes allowed.", storage.MaxNameLen)
	case errors.Is(err, storage.ErrCorruptChain):
		return fmt.Sprintf("file %s is corrupted.", name)
	case errors.Is(err, storage.ErrClosed):
		return "Server is shutting down."
	case errors.Is(err, storage.ErrStorageIO):
		return "Storage I/O error."
	default:
		return err.Error()
	}
}

// IsError reports whether a response line carries a failure
func IsError(resp string) bool {
	return strings.HasPrefix(resp, errorPrefix)
}

// ErrorText strips the ERROR prefix from a failure response
func ErrorText(resp string) string {
	return strings.TrimPrefix(resp, errorPrefix)
}

// ContentFollows reports whether resp is the header of a READ response
// whose n raw bytes and a line terminator follow on the connection
func ContentFollows(resp string) (n int, ok bool) {
	m := contentHeader.FindStringSubmatch(resp)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseContent extracts the data of a single line READ response
func ParseContent(resp string) ([]byte, error) {
	if !strings.HasPrefix(resp, contentPrefix) {
		return nil, fmt.Errorf("unexpected response %q", resp)
	}
	body := resp[len(contentPrefix):]
	m := contentSuffix.FindStringSubmatchIndex(body)
	if m == nil {
		return nil, fmt.Errorf("no byte count in %q", resp)
	}
	n, err := strconv.Atoi(body[m[2]:m[3]])
	if err != nil {
		return nil, fmt.Errorf("bad byte count in %q: %w", resp, err)
	}
	text := body[:m[0]]
	if len(text) != n {
		return nil, fmt.Errorf("response %q announces %d bytes, carries %d", resp, n, len(text))
	}
	return []byte(text), nil
}

// ParseListing extracts file names from a LIST response
func ParseListing(resp string) ([]string, error) {
	if resp == NoFiles {
		return []string{}, nil
	}
	if !strings.HasPrefix(resp, listPrefix) {
		return nil, fmt.Errorf("unexpected response %q", resp)
	}
	return strings.Split(resp[len(listPrefix):], listSeparator), nil
}

// IsSuccess reports whether a response line acknowledges a mutation
func IsSuccess(resp string) bool {
	return strings.HasPrefix(resp, successPrefix)
}
