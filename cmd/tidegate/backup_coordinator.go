// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/tidegate/cmd/tidegate/storage"
	"github.com/AleutianAI/tidegate/pkg/logging"
)

// manifestFileName is the bundle manifest written after all captures.
const manifestFileName = "manifest.json"

// =============================================================================
// Backup Types
// =============================================================================

// BackupOptions selects what a backup captures.
type BackupOptions struct {
	// Name overrides the derived bundle name.
	Name string

	// IncludeDatabase captures a logical database dump.
	IncludeDatabase bool

	// IncludeVolumes captures persistent volume claim definitions.
	IncludeVolumes bool

	// IncludeTemplates captures the provider template files.
	IncludeTemplates bool

	// RetentionDays is recorded in the manifest for later purging.
	RetentionDays int

	// Upload sends the finished bundle to the state bucket.
	Upload bool
}

// BackupComponent records one capture attempt inside a bundle.
//
// A failed capture is recorded with Captured=false and the error text;
// it never aborts the bundle. A partial backup before a teardown is
// worth more than no backup.
type BackupComponent struct {
	Name      string `json:"name"`
	Captured  bool   `json:"captured"`
	File      string `json:"file,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BackupManifest describes a finished bundle.
//
// The manifest is written last: its presence marks the bundle as
// complete, and its checksum covers every captured file.
type BackupManifest struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Environment    string            `json:"environment"`
	Actor          string            `json:"actor"`
	CreatedAt      time.Time         `json:"created_at"`
	RetentionDays  int               `json:"retention_days"`
	Components     []BackupComponent `json:"components"`
	TotalSizeBytes int64             `json:"total_size_bytes"`
	Checksum       string            `json:"checksum"`
}

// =============================================================================
// Interface Definition
// =============================================================================

// BackupCoordinator captures environment snapshots before destructive
// operations and enforces bundle retention.
type BackupCoordinator interface {
	// CreateBackup captures a bundle for the environment.
	//
	// Every component is best-effort: capture failures are logged and
	// recorded in the manifest, and the bundle completes regardless.
	CreateBackup(ctx context.Context, env EnvironmentContext, opts BackupOptions) (BackupManifest, error)

	// ListBackups returns the manifests of all complete bundles,
	// newest first.
	ListBackups() ([]BackupManifest, error)

	// PurgeExpired deletes bundles past their retention and returns
	// how many were removed. retentionDays overrides the per-bundle
	// value when positive.
	PurgeExpired(ctx context.Context, retentionDays int) (int, error)
}

// =============================================================================
// Implementation
// =============================================================================

// DefaultBackupCoordinator implements BackupCoordinator on the local
// filesystem with optional bucket upload.
type DefaultBackupCoordinator struct {
	provider  InfraProvider
	cluster   ClusterQuery
	store     storage.ObjectStore
	backupDir string
	output    io.Writer
	logger    *logging.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewDefaultBackupCoordinator creates a coordinator writing bundles
// under backupDir.
func NewDefaultBackupCoordinator(provider InfraProvider, cluster ClusterQuery, store storage.ObjectStore, backupDir string, output io.Writer, logger *logging.Logger) *DefaultBackupCoordinator {
	return &DefaultBackupCoordinator{
		provider:  provider,
		cluster:   cluster,
		store:     store,
		backupDir: backupDir,
		output:    output,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateBackup captures a bundle for the environment.
func (b *DefaultBackupCoordinator) CreateBackup(ctx context.Context, env EnvironmentContext, opts BackupOptions) (BackupManifest, error) {
	createdAt := b.now()
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", createdAt.Format("20060102-150405"), env.Name)
	}

	bundleDir := filepath.Join(b.backupDir, name)
	if err := os.MkdirAll(bundleDir, 0750); err != nil {
		return BackupManifest{}, fmt.Errorf("failed to create backup bundle directory: %w", err)
	}

	fmt.Fprintf(b.output, "Creating backup %s...\n", name)

	var components []BackupComponent

	// Provider state, one capture per phase.
	for _, phase := range env.Layout.Phases() {
		dir, err := env.Layout.Dir(phase)
		if err != nil {
			continue
		}
		components = append(components, b.capture(bundleDir,
			fmt.Sprintf("state-%s", phase),
			fmt.Sprintf("state-%s.tfstate", phase),
			func() ([]byte, error) { return b.provider.StatePull(ctx, dir) }))
	}

	// Cluster manifests are always captured.
	components = append(components, b.capture(bundleDir,
		"cluster-manifests", "manifests.yaml",
		func() ([]byte, error) { return b.cluster.ExportManifests(ctx) }))

	// Environment configuration and the backend descriptor are always
	// captured, even for data-less bundles.
	components = append(components, b.captureConfiguration(bundleDir, env))

	// Database dump, flag-gated: the DSN comes from the
	// infrastructure root's outputs.
	if opts.IncludeDatabase {
		components = append(components, b.capture(bundleDir,
			"database-dump", "database.sql",
			func() ([]byte, error) {
				dsn, err := b.databaseDSN(ctx, env)
				if err != nil {
					return nil, err
				}
				return b.cluster.DumpDatabase(ctx, dsn)
			}))
	}

	// Workspace volume definitions, flag-gated.
	if opts.IncludeVolumes {
		components = append(components, b.capture(bundleDir,
			"workspace-volumes", "volumes.yaml",
			func() ([]byte, error) { return b.cluster.ArchiveVolumes(ctx) }))
	}

	// Provider templates, flag-gated.
	if opts.IncludeTemplates {
		components = append(components, b.captureTemplates(bundleDir, env))
	}

	manifest := BackupManifest{
		ID:            uuid.NewString(),
		Name:          name,
		Environment:   env.Name.String(),
		Actor:         currentActor(),
		CreatedAt:     createdAt,
		RetentionDays: opts.RetentionDays,
		Components:    components,
	}
	for _, c := range components {
		manifest.TotalSizeBytes += c.SizeBytes
	}

	checksum, err := bundleChecksum(bundleDir)
	if err != nil {
		return BackupManifest{}, fmt.Errorf("failed to checksum backup bundle: %w", err)
	}
	manifest.Checksum = checksum

	// The manifest is written last so its presence implies a complete
	// bundle and its checksum covers everything already on disk.
	if err := writeManifest(bundleDir, manifest); err != nil {
		return BackupManifest{}, err
	}

	captured := 0
	for _, c := range components {
		if c.Captured {
			captured++
		}
	}
	b.logger.Info("backup complete",
		"name", name,
		"environment", env.Name.String(),
		"components_captured", captured,
		"components_total", len(components),
		"bytes", manifest.TotalSizeBytes)

	if opts.Upload {
		b.uploadBundle(ctx, env, name, bundleDir)
	}

	return manifest, nil
}

// capture runs one component capture and records the outcome.
func (b *DefaultBackupCoordinator) capture(bundleDir, component, file string, fetch func() ([]byte, error)) BackupComponent {
	data, err := fetch()
	if err != nil {
		b.logger.Warn("backup component failed",
			"component", component,
			"error", err.Error())
		fmt.Fprintf(b.output, "  %s: FAILED (%v)\n", component, err)
		return BackupComponent{Name: component, Captured: false, Error: err.Error()}
	}

	path := filepath.Join(bundleDir, file)
	if err := os.WriteFile(path, data, 0640); err != nil {
		b.logger.Warn("backup component write failed",
			"component", component,
			"error", err.Error())
		return BackupComponent{Name: component, Captured: false, Error: err.Error()}
	}

	fmt.Fprintf(b.output, "  %s: %d bytes\n", component, len(data))
	return BackupComponent{
		Name:      component,
		Captured:  true,
		File:      file,
		SizeBytes: int64(len(data)),
	}
}

// captureTemplates copies the provider template files of every phase.
func (b *DefaultBackupCoordinator) captureTemplates(bundleDir string, env EnvironmentContext) BackupComponent {
	dest := filepath.Join(bundleDir, "templates")
	var total int64

	for _, phase := range env.Layout.Phases() {
		srcDir, err := env.Layout.Dir(phase)
		if err != nil {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(srcDir, "*.tf"))
		if err != nil || len(matches) == 0 {
			continue
		}
		phaseDest := filepath.Join(dest, string(phase))
		if err := os.MkdirAll(phaseDest, 0750); err != nil {
			return BackupComponent{Name: "templates", Captured: false, Error: err.Error()}
		}
		for _, src := range matches {
			data, err := os.ReadFile(src)
			if err != nil {
				continue
			}
			if err := os.WriteFile(filepath.Join(phaseDest, filepath.Base(src)), data, 0640); err != nil {
				continue
			}
			total += int64(len(data))
		}
	}

	if total == 0 {
		return BackupComponent{Name: "templates", Captured: false, Error: "no template files found"}
	}
	fmt.Fprintf(b.output, "  templates: %d bytes\n", total)
	return BackupComponent{Name: "templates", Captured: true, File: "templates", SizeBytes: total}
}

// captureConfiguration snapshots the environment settings and the
// backend descriptor into the bundle's config/ directory.
func (b *DefaultBackupCoordinator) captureConfiguration(bundleDir string, env EnvironmentContext) BackupComponent {
	dest := filepath.Join(bundleDir, "config")
	if err := os.MkdirAll(dest, 0750); err != nil {
		return BackupComponent{Name: "configuration", Captured: false, Error: err.Error()}
	}

	snapshot := struct {
		Environment  string `yaml:"environment"`
		Product      string `yaml:"product"`
		Region       string `yaml:"region"`
		Zone         string `yaml:"zone,omitempty"`
		Domain       string `yaml:"domain,omitempty"`
		InstanceType string `yaml:"instance_type,omitempty"`
	}{
		Environment:  env.Name.String(),
		Product:      env.Product,
		Region:       env.Region,
		Zone:         env.Zone,
		Domain:       env.Domain,
		InstanceType: env.InstanceType,
	}
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return BackupComponent{Name: "configuration", Captured: false, Error: err.Error()}
	}
	if err := os.WriteFile(filepath.Join(dest, "environment.yaml"), data, 0640); err != nil {
		return BackupComponent{Name: "configuration", Captured: false, Error: err.Error()}
	}
	total := int64(len(data))

	// The backend descriptor sits next to the provider roots.
	if desc, err := os.ReadFile(filepath.Join(environmentRoot(env), "backend.yaml")); err == nil {
		if err := os.WriteFile(filepath.Join(dest, "backend.yaml"), desc, 0640); err == nil {
			total += int64(len(desc))
		}
	}

	fmt.Fprintf(b.output, "  configuration: %d bytes\n", total)
	return BackupComponent{Name: "configuration", Captured: true, File: "config", SizeBytes: total}
}

// environmentRoot derives the per-environment directory from the
// layout: the combined root itself, or the parent of the phase roots.
func environmentRoot(env EnvironmentContext) string {
	phases := env.Layout.Phases()
	dir, err := env.Layout.Dir(phases[0])
	if err != nil {
		return ""
	}
	if phases[0] == PhaseCombined {
		return dir
	}
	return filepath.Dir(dir)
}

// databaseDSN resolves the platform database DSN from the
// infrastructure root's outputs.
func (b *DefaultBackupCoordinator) databaseDSN(ctx context.Context, env EnvironmentContext) (string, error) {
	phase := PhaseInfrastructure
	if _, err := env.Layout.Dir(phase); err != nil {
		phase = PhaseCombined
	}
	dir, err := env.Layout.Dir(phase)
	if err != nil {
		return "", err
	}
	return b.provider.Output(ctx, dir, "database_url")
}

// uploadBundle pushes the bundle to the state bucket, best-effort.
func (b *DefaultBackupCoordinator) uploadBundle(ctx context.Context, env EnvironmentContext, name, bundleDir string) {
	bucket := env.StateBucketName()
	prefix := filepath.Join("backups", name)
	if err := b.store.UploadDir(ctx, bucket, bundleDir, prefix); err != nil {
		b.logger.Warn("backup upload failed",
			"name", name,
			"bucket", bucket,
			"error", err.Error())
		fmt.Fprintf(b.output, "  upload to %s: FAILED (%v)\n", bucket, err)
		return
	}
	fmt.Fprintf(b.output, "  uploaded to %s/%s\n", bucket, prefix)
}

// ListBackups returns the manifests of all complete bundles.
func (b *DefaultBackupCoordinator) ListBackups() ([]BackupManifest, error) {
	entries, err := os.ReadDir(b.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var manifests []BackupManifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := readManifest(filepath.Join(b.backupDir, entry.Name()))
		if err != nil {
			// A bundle without a readable manifest never finished;
			// skip it rather than failing the listing.
			continue
		}
		manifests = append(manifests, manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
	})
	return manifests, nil
}

// PurgeExpired deletes bundles past their retention.
//
// Deletion is unconditional: no confirmation gate guards it, and each
// removal is logged with the bundle's age.
func (b *DefaultBackupCoordinator) PurgeExpired(ctx context.Context, retentionDays int) (int, error) {
	manifests, err := b.ListBackups()
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, m := range manifests {
		retention := m.RetentionDays
		if retentionDays > 0 {
			retention = retentionDays
		}
		if retention <= 0 {
			continue // No retention configured means keep forever.
		}

		age := b.now().Sub(m.CreatedAt)
		if age <= time.Duration(retention)*24*time.Hour {
			continue
		}

		bundleDir := filepath.Join(b.backupDir, m.Name)
		if err := os.RemoveAll(bundleDir); err != nil {
			return purged, fmt.Errorf("failed to purge backup %s: %w", m.Name, err)
		}
		purged++
		b.logger.Info("backup purged",
			"name", m.Name,
			"age_days", int(age.Hours()/24),
			"retention_days", retention)
		fmt.Fprintf(b.output, "Purged backup %s (age %dd, retention %dd)\n",
			m.Name, int(age.Hours()/24), retention)
	}
	return purged, nil
}

// =============================================================================
// Helpers
// =============================================================================

// writeManifest serializes the manifest into the bundle.
func writeManifest(bundleDir string, manifest BackupManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize backup manifest: %w", err)
	}
	path := filepath.Join(bundleDir, manifestFileName)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	return nil
}

// readManifest loads a bundle's manifest.
func readManifest(bundleDir string) (BackupManifest, error) {
	data, err := os.ReadFile(filepath.Join(bundleDir, manifestFileName))
	if err != nil {
		return BackupManifest{}, err
	}
	var manifest BackupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return BackupManifest{}, fmt.Errorf("malformed manifest in %s: %w", bundleDir, err)
	}
	return manifest, nil
}

// bundleChecksum hashes every file in the bundle in path order.
//
// The manifest itself is excluded: it carries the checksum, so it
// cannot be covered by it.
func bundleChecksum(bundleDir string) (string, error) {
	var files []string
	err := filepath.Walk(bundleDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(path) == manifestFileName {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, path := range files {
		rel, err := filepath.Rel(bundleDir, path)
		if err != nil {
			return "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		// Path is part of the hash so renames are detectable.
		fmt.Fprintf(h, "%s\n", rel)
		_, copyErr := io.Copy(h, f)
		f.Close()
		if copyErr != nil {
			return "", copyErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// currentActor identifies who ran the backup, for the manifest.
func currentActor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

// Compile-time interface compliance check.
var _ BackupCoordinator = (*DefaultBackupCoordinator)(nil)
