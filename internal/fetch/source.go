// Package fetch pulls delivery extracts from a remote drop directory
// into the local new/ area. The transport is abstracted behind
// RemoteSource so the downloader can be tested without a server; the
// shipped implementation speaks SFTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	pipelineerrors "sftp-data-ingestion/pkg/errors"
)

// RemoteFile describes one file on the remote side.
type RemoteFile struct {
	Name string
	Size int64
}

// RemoteSource lists and streams files from a remote drop directory.
type RemoteSource interface {
	List(ctx context.Context, dir string) ([]RemoteFile, error)
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
	Close() error
}

// SFTPConfig carries the connection settings for an SFTP drop.
type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string

	// KnownHostsFile enables host key verification against an OpenSSH
	// known_hosts file. Empty means the host key is not checked, which
	// is acceptable only inside a trusted network.
	KnownHostsFile string

	Timeout time.Duration
}

func (c *SFTPConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", port))
}

// sftpSource is the pkg/sftp backed RemoteSource.
type sftpSource struct {
	conn   *ssh.Client
	client *sftp.Client
}

// DialSFTP opens an SSH connection with password auth and starts an
// SFTP subsystem on it.
func DialSFTP(cfg *SFTPConfig) (RemoteSource, error) {
	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, pipelineerrors.ConfigurationError(
				pipelineerrors.CodeInvalidConfig, "sftp.known_hosts", err)
		}
		hostKey = cb
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	conn, err := ssh.Dial("tcp", cfg.addr(), &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	})
	if err != nil {
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeConnectionFailed, cfg.addr(), err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeConnectionFailed, cfg.addr(), err)
	}

	return &sftpSource{conn: conn, client: client}, nil
}

func (s *sftpSource) List(ctx context.Context, dir string) ([]RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeListingFailed, dir, err)
	}

	var files []RemoteFile
	for _, e := range entries {
		if e.IsDir() || !e.Mode().IsRegular() {
			continue
		}
		files = append(files, RemoteFile{Name: e.Name(), Size: e.Size()})
	}
	return files, nil
}

func (s *sftpSource) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.client.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pipelineerrors.FileError(
				pipelineerrors.CodeFileNotFound, path, err)
		}
		return nil, pipelineerrors.TransportError(
			pipelineerrors.CodeFetchFailed, path, err)
	}
	return f, nil
}

func (s *sftpSource) Close() error {
	clientErr := s.client.Close()
	connErr := s.conn.Close()
	if clientErr != nil {
		return clientErr
	}
	return connErr
}
