package netchat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/putto11262002/netchat/core"
)

// CLI is a thin line-oriented front end over the session. It owns no chat
// state: every command reads a store snapshot or invokes a session action,
// and inbound updates surface through the notice callbacks.
type CLI struct {
	session *core.Session
	in      *bufio.Scanner
	out     io.Writer
}

func NewCLI(session *core.Session, in io.Reader, out io.Writer) *CLI {
	cli := &CLI{
		session: session,
		in:      bufio.NewScanner(in),
		out:     out,
	}
	session.Notices.OnShow(func(n core.Notice) {
		fmt.Fprintf(out, "[notice] %s\n", n.Text)
	})
	return cli
}

// Run consumes commands until EOF, /quit, or context cancellation.
func (c *CLI) Run(ctx context.Context) {
	fmt.Fprintln(c.out, "connected. /help for commands.")
	for c.in.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		c.handle(ctx, line)
	}
}

func (c *CLI) handle(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		// A line arriving counts as input activity; submission then clears
		// the typing signal.
		c.session.Typing.InputActivity()
		c.report(c.session.SendMessage(line))
		return
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "help":
		c.printHelp()
	case "rooms":
		for _, room := range c.session.Rooms.Catalog() {
			fmt.Fprintf(c.out, "%s  (%d members, %d messages)\n", room.Name, room.MemberCount, room.MessageCount)
		}
	case "join":
		if c.report(c.session.JoinRoom(rest)) {
			return
		}
		fmt.Fprintf(c.out, "joined %s\n", rest)
	case "leave":
		c.report(c.session.LeaveRoom())
	case "history":
		if c.session.Rooms.Loading() {
			fmt.Fprintln(c.out, "history still loading")
			return
		}
		for _, msg := range c.session.Rooms.History() {
			c.printMessage(msg)
		}
	case "who":
		for _, member := range c.session.Rooms.Members() {
			fmt.Fprintln(c.out, member)
		}
	case "online":
		for _, peer := range c.session.Presence.Peers() {
			fmt.Fprintln(c.out, peer.Name)
		}
	case "typing":
		if indicator := c.session.Typing.Indicator(); indicator != "" {
			fmt.Fprintln(c.out, indicator)
		}
	case "open":
		for _, msg := range c.session.PMs.Open(rest) {
			c.printPM(rest, msg)
		}
	case "closepm":
		c.session.PMs.Close()
	case "pm":
		peer, body, _ := strings.Cut(rest, " ")
		c.report(c.session.SendPM(peer, strings.TrimSpace(body)))
	case "unread":
		for peer, n := range c.session.Unread.Load() {
			fmt.Fprintf(c.out, "%s: %d\n", peer, n)
		}
	case "encrypt":
		c.report(c.session.RoomToggle().Enable(rest))
	case "plain":
		c.session.RoomToggle().Disable()
	case "pmencrypt":
		c.report(c.session.PMs.Toggle().Enable(rest))
	case "pmplain":
		c.session.PMs.Toggle().Disable()
	case "reveal":
		plain, err := c.session.Reveal(ctx, rest, c.promptPassword)
		if !c.report(err) {
			fmt.Fprintf(c.out, "revealed: %s\n", plain)
		}
	case "share":
		path, caption, _ := strings.Cut(rest, " ")
		c.report(c.shareImage(ctx, path, strings.TrimSpace(caption)))
	case "logout":
		c.session.Logout(ctx)
	default:
		fmt.Fprintf(c.out, "unknown command: /%s\n", cmd)
	}
}

func (c *CLI) shareImage(ctx context.Context, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	return c.session.ShareImage(ctx, caption, filepath.Base(path), mimeType, info.Size(), f)
}

func (c *CLI) promptPassword() (string, bool) {
	fmt.Fprint(c.out, "password: ")
	if !c.in.Scan() {
		return "", false
	}
	password := strings.TrimSpace(c.in.Text())
	return password, password != ""
}

// report prints err if any and says whether it did.
func (c *CLI) report(err error) bool {
	if err == nil {
		return false
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
	return true
}

func (c *CLI) printMessage(msg core.Message) {
	switch {
	case msg.Kind == core.SystemMessage:
		fmt.Fprintf(c.out, "* %s\n", msg.Body)
	case msg.Encrypted:
		fmt.Fprintf(c.out, "%s: [encrypted] %s\n", msg.Author, msg.Body)
	case msg.ImageRef != "":
		fmt.Fprintf(c.out, "%s: [image] %s %s\n", msg.Author, msg.ImageRef, msg.Body)
	default:
		fmt.Fprintf(c.out, "%s: %s\n", msg.Author, msg.Body)
	}
}

func (c *CLI) printPM(peer string, msg core.PMMessage) {
	author := peer
	if msg.Direction == core.Sent {
		author = "me"
	}
	switch {
	case msg.ImageRef != "":
		fmt.Fprintf(c.out, "%s: [image] %s %s\n", author, msg.ImageRef, msg.Body)
	case msg.Encrypted:
		fmt.Fprintf(c.out, "%s: [encrypted] %s\n", author, msg.Body)
	default:
		fmt.Fprintf(c.out, "%s: %s\n", author, msg.Body)
	}
}

func (c *CLI) printHelp() {
	fmt.Fprint(c.out, `commands:
  /rooms                list rooms
  /join <room>          join a room
  /leave                leave the active room
  /history              print the active room's messages
  /who                  members of the active room
  /online               everyone online
  /typing               who is typing
  /open <peer>          open a private thread
  /closepm              close the private thread
  /pm <peer> <text>     send a private message
  /unread               unread private message counts
  /encrypt <password>   obfuscate outgoing room messages
  /plain                stop obfuscating room messages
  /pmencrypt <password> obfuscate outgoing private messages
  /pmplain              stop obfuscating private messages
  /reveal <token>       reveal an obfuscated message
  /share <path> [text]  share an image in the active room
  /logout               log out and clear credentials
  /quit                 exit
anything else is sent to the active room.
`)
}
