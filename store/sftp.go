package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"mediaproxy/logger"
)

// SFTPConfig carries the connection settings for the SFTP driver.
// Password and PrivateKey are alternatives; PrivateKey wins when both are
// set and may be raw PEM or base64-encoded PEM.
type SFTPConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	PrivateKey string
	Root       string
	MaxConns   int
}

// SFTP is a Store backed by an SFTP server. Connections are pooled with a
// fixed ceiling: idle clients are reused, and at most MaxConns sessions are
// open at any time.
type SFTP struct {
	cfg    SFTPConfig
	addr   string
	sshCfg *ssh.ClientConfig
	idle   chan *sftpConn
	slots  chan struct{}
}

type sftpConn struct {
	ssh *ssh.Client
	cl  *sftp.Client
}

func (c *sftpConn) close() {
	c.cl.Close()
	c.ssh.Close()
}

// NewSFTP builds the driver and verifies connectivity with one probe
// connection, which is returned to the pool.
func NewSFTP(cfg SFTPConfig) (*SFTP, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 8
	}
	if cfg.Port == "" {
		cfg.Port = "22"
	}

	var auths []ssh.AuthMethod
	if cfg.PrivateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
		if err != nil {
			keyBytes = []byte(cfg.PrivateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if cfg.Password != "" {
		auths = append(auths, ssh.Password(cfg.Password))
	} else {
		return nil, fmt.Errorf("no auth method provided; set password or private key")
	}

	s := &SFTP{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, cfg.Port),
		sshCfg: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auths,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		},
		idle:  make(chan *sftpConn, cfg.MaxConns),
		slots: make(chan struct{}, cfg.MaxConns),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("sftp connectivity check: %w", err)
	}
	s.release(conn, false)
	logger.Infof("SFTP store connected to %s (max %d connections)", s.addr, cfg.MaxConns)
	return s, nil
}

func (s *SFTP) dial(ctx context.Context) (*sftpConn, error) {
	d := net.Dialer{Timeout: s.sshCfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", s.addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr, s.sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", s.addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	cl, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	return &sftpConn{ssh: sshClient, cl: cl}, nil
}

// acquire returns an idle pooled connection or dials a new one, blocking
// when the connection ceiling is reached.
func (s *SFTP) acquire(ctx context.Context) (*sftpConn, error) {
	select {
	case c := <-s.idle:
		return c, nil
	default:
	}
	select {
	case c := <-s.idle:
		return c, nil
	case s.slots <- struct{}{}:
		c, err := s.dial(ctx)
		if err != nil {
			<-s.slots
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns a connection to the idle pool, or discards it when broken
// so the ceiling slot frees up for a fresh dial.
func (s *SFTP) release(c *sftpConn, broken bool) {
	if broken {
		c.close()
		<-s.slots
		return
	}
	select {
	case s.idle <- c:
	default:
		c.close()
		<-s.slots
	}
}

func (s *SFTP) remotePath(p string) string {
	return path.Join(s.cfg.Root, p)
}

func sftpErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func (s *SFTP) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SFTP) Stat(ctx context.Context, p string) (FileInfo, error) {
	c, err := s.acquire(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	fi, err := c.cl.Stat(s.remotePath(p))
	if err != nil {
		s.release(c, !errors.Is(err, os.ErrNotExist))
		return FileInfo{}, sftpErr(err)
	}
	s.release(c, false)
	return FileInfo{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// sftpReader keeps the pooled connection checked out for the life of the
// stream and returns it on Close.
type sftpReader struct {
	io.Reader
	f      *sftp.File
	s      *SFTP
	c      *sftpConn
	closed bool
}

func (r *sftpReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.f.Close()
	r.s.release(r.c, false)
	return err
}

func (s *SFTP) OpenRead(ctx context.Context, p string, br *ByteRange) (io.ReadCloser, error) {
	c, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	f, err := c.cl.Open(s.remotePath(p))
	if err != nil {
		s.release(c, !errors.Is(err, os.ErrNotExist))
		return nil, sftpErr(err)
	}
	var r io.Reader = f
	if br != nil {
		if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
			f.Close()
			s.release(c, false)
			return nil, err
		}
		r = io.LimitReader(f, br.Length())
	}
	return &sftpReader{Reader: r, f: f, s: s, c: c}, nil
}

type sftpWriter struct {
	*sftp.File
	s      *SFTP
	c      *sftpConn
	closed bool
}

func (w *sftpWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.File.Close()
	w.s.release(w.c, false)
	return err
}

func (s *SFTP) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	c, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rp := s.remotePath(p)
	if err := mkdirAllSFTP(c.cl, path.Dir(rp)); err != nil {
		s.release(c, false)
		return nil, fmt.Errorf("ensure remote dir %s: %w", path.Dir(rp), err)
	}
	f, err := c.cl.Create(rp)
	if err != nil {
		s.release(c, false)
		return nil, fmt.Errorf("create remote file %s: %w", rp, err)
	}
	return &sftpWriter{File: f, s: s, c: c}, nil
}

func (s *SFTP) List(ctx context.Context, p string) ([]Entry, error) {
	c, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	infos, err := c.cl.ReadDir(s.remotePath(p))
	if err != nil {
		s.release(c, !errors.Is(err, os.ErrNotExist))
		return nil, sftpErr(err)
	}
	s.release(c, false)
	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{Name: fi.Name(), Size: fi.Size(), IsDir: fi.IsDir()})
	}
	return entries, nil
}

func (s *SFTP) Move(ctx context.Context, from, to string) error {
	c, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(c, false)
	dst := s.remotePath(to)
	if err := mkdirAllSFTP(c.cl, path.Dir(dst)); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", path.Dir(dst), err)
	}
	return sftpErr(c.cl.Rename(s.remotePath(from), dst))
}

func (s *SFTP) Delete(ctx context.Context, p string) error {
	c, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(c, false)
	rp := s.remotePath(p)
	fi, err := c.cl.Stat(rp)
	if err != nil {
		return sftpErr(err)
	}
	if fi.IsDir() {
		return sftpErr(c.cl.RemoveAll(rp))
	}
	return sftpErr(c.cl.Remove(rp))
}

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server by creating each
// segment of the path.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
