package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"playlister/config"
	"playlister/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
	minioCheck  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的头像文件，支持列出文件、查看统计信息、连接检查、删除目录等功能。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		// 加载配置
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		avatars, err := storage.NewAvatarStore(cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := avatars.EnsureBucket(ctx); err != nil {
			log.Fatalf("存储桶不可用: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		// 根据参数执行不同的操作
		switch {
		case minioCheck:
			fmt.Println("\n测试文件读写...")
			if err := avatars.CheckConnection(ctx); err != nil {
				log.Fatalf("文件操作测试失败: %v", err)
			}
			fmt.Println("文件读写正常")

		case minioDelete:
			// 删除目录
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定目录前缀")
			}
			fmt.Printf("\n删除目录: %s\n", minioPrefix)
			removed, err := avatars.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除目录失败 (已删除 %d 个): %v", removed, err)
			}
			fmt.Printf("已删除 %d 个对象\n", removed)

		default:
			objects, stats, err := avatars.ListObjects(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("列出文件失败: %v", err)
			}
			if minioStats {
				printBucketStats(avatars.Bucket(), stats)
				break
			}
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			for _, obj := range objects {
				fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("共 %d 个对象\n", len(objects))
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func printBucketStats(bucket string, stats *storage.BucketStats) {
	fmt.Printf("\n存储桶 %s 统计信息:\n", bucket)
	fmt.Printf("  对象总数: %d\n", stats.TotalObjects)
	fmt.Printf("  总大小:   %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("  最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-28s %s\n", t, storage.FormatSize(stats.ByType[t]))
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	// 添加命令行参数
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")
	minioCmd.Flags().BoolVarP(&minioCheck, "check", "c", false, "测试文件上传、读取和删除")

	// 添加使用说明
	minioCmd.Example = `  # 列出所有文件
  playlister minio

  # 只列出头像
  playlister minio -p "avatars/"

  # 显示存储桶统计信息
  playlister minio -s

  # 测试读写
  playlister minio -c

  # 删除目录及其下的所有文件
  playlister minio -d -p "test/"`
}
