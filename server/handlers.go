package server

import (
	"github.com/viert/flatfs/protocol"
)

// handle executes one request line and returns the response line.
// quit is set when the client asked to disconnect.
func (s *Server) handle(line string) (resp string, quit bool) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		return protocol.Error(cmd.Name, err), false
	}

	switch cmd.Verb {
	case protocol.VerbCreate:
		if err := s.storage.Create(cmd.Name); err != nil {
			return s.failure(cmd, err), false
		}
		return protocol.Created(cmd.Name), false

	case protocol.VerbWrite:
		if err := s.storage.Write(cmd.Name, []byte(cmd.Content)); err != nil {
			return s.failure(cmd, err), false
		}
		return protocol.Written(cmd.Name), false

	case protocol.VerbRead:
		data, err := s.storage.Read(cmd.Name)
		if err != nil {
			return s.failure(cmd, err), false
		}
		return protocol.Content(data), false

	case protocol.VerbList:
		names, err := s.storage.List()
		if err != nil {
			return s.failure(cmd, err), false
		}
		return protocol.Listing(names), false

	case protocol.VerbDelete:
		if err := s.storage.Delete(cmd.Name); err != nil {
			return s.failure(cmd, err), false
		}
		return protocol.Deleted(cmd.Name), false

	case protocol.VerbQuit:
		return protocol.Disconnecting, true
	}
	return protocol.UnknownCommand, false
}

func (s *Server) failure(cmd protocol.Command, err error) string {
	log.Debugf("%s %q failed: %s", cmd.Verb, cmd.Name, err)
	return protocol.Error(cmd.Name, err)
}
